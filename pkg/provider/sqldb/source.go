package sqldb

import (
	"net/url"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
)

// dialect holds what differs between the supported database engines.
type dialect struct {
	driver string
	// tables lists (name, kind) pairs of the relations a tree root shows.
	tables string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		tables: `SELECT name, type FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
ORDER BY name`,
	}
	postgresDialect = dialect{
		driver: "postgres",
		tables: `SELECT table_name, table_type FROM information_schema.tables
WHERE table_schema = current_schema()
ORDER BY table_name`,
	}
)

// locate maps a document key to its dialect and data source name.
//
//	sqlite:///data/app.db     -> sqlite, /data/app.db
//	sqlite:app.db             -> sqlite, app.db
//	file:///data/app.db       -> sqlite, /data/app.db
//	/data/app.sqlite          -> sqlite, /data/app.sqlite
//	postgres://u@host/db      -> postgres, postgres://u@host/db
func locate(doc string) (dialect, string, error) {
	if p, ok := mount.FilePath(doc); ok {
		return sqliteDialect, p, nil
	}
	u, err := url.Parse(doc)
	if err != nil {
		return dialect{}, "", errs.Wrap(errs.ErrCodeInvalidSource, err, "invalid database source %q", doc)
	}
	switch strings.ToLower(u.Scheme) {
	case "sqlite", "sqlite3":
		p := u.Opaque
		if p == "" {
			p = u.Path
		}
		if p == "" {
			return dialect{}, "", errs.New(errs.ErrCodeInvalidSource, "sqlite source %q has no path", doc)
		}
		return sqliteDialect, filepath.FromSlash(p), nil
	case "postgres", "postgresql":
		u.RawQuery = ""
		u.Fragment = ""
		return postgresDialect, u.String(), nil
	}
	return dialect{}, "", errs.New(errs.ErrCodeUnsupportedSource, "unsupported database scheme %q", u.Scheme)
}

// displayName is the label of a database root.
func displayName(d dialect, dsn string) string {
	if d.driver == sqliteDialect.driver {
		return filepath.Base(dsn)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name + "@" + u.Host
	}
	return u.Host
}
