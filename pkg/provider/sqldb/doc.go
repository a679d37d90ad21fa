// Package sqldb provides a tree provider for SQL databases: SQLite files
// (".db", ".sqlite", ".sqlite3" or "sqlite:" URLs, through the pure-Go
// modernc.org/sqlite driver) and PostgreSQL servers ("postgres://" URLs,
// through lib/pq).
//
// The root of a database lists its tables and views. Each is a lazy mount
// "?table=<name>"; resolving it runs
//
//	SELECT * FROM "<name>"
//
// or the statement configured as the "query.<name>" macro, expands ${name}
// macros from the provider options and the request parameters, narrows the
// result with every configured clause that has a "where.<clause>" parameter,
// and lists at most RowLimit rows. Rows are hierarchized like any other
// wide branch; each row lists its column values as children.
//
// Clause values arrive from URLs and are always quoted as string literals.
// Macro values are substituted verbatim.
//
// PostgreSQL connection settings that are not part of the URL (sslmode,
// passwords) are read by lib/pq from the standard PG* environment
// variables. Query parameters on a postgres:// source are provider
// parameters, not connection options.
//
// One connection pool is kept per provider and reused while continuations
// point at the same database.
package sqldb
