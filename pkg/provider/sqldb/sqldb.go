package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/query"
	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Format registers the provider for SQLite files and PostgreSQL servers.
var Format = &provider.Format{
	Name:       "sql",
	Schemes:    []string{"sqlite", "sqlite3", "postgres", "postgresql"},
	Extensions: []string{".db", ".sqlite", ".sqlite3"},
	New:        New,
}

const (
	paramTable  = "table"
	wherePrefix = "where."

	// MacroQueryPrefix names the macro that replaces the default
	// "SELECT * FROM ${table}" statement of one table: "query.<table>".
	MacroQueryPrefix = "query."
)

// labelColumns are tried in order to pick a row label.
var labelColumns = []string{"name", "title", "label"}

// Provider builds trees of database tables and rows.
type Provider struct {
	provider.Base
	dbs *session.Cache[*sql.DB]
}

// New creates a database provider.
func New(opts provider.Options) (mount.Provider, error) {
	base, err := provider.NewBase(opts)
	if err != nil {
		return nil, err
	}
	p := &Provider{Base: base}
	p.dbs = session.NewCache(p.open)
	return p, nil
}

// Name implements [mount.Provider].
func (p *Provider) Name() string { return "sql" }

// Close closes the held connection pool.
func (p *Provider) Close() error { return p.dbs.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - table: list the rows of this table instead of the table overview
//   - where.<clause>: value of a configured narrowing clause, quoted as a
//     string literal and substituted without macro expansion; a blank value
//     leaves the clause out
//   - any other parameter: overrides a configured ${name} macro
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	key := mount.DocumentKey(req.Source)
	d, dsn, err := locate(key)
	if err != nil {
		return nil, err
	}
	db, err := p.dbs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if table := req.Param(paramTable, ""); table != "" {
		return p.tableTree(ctx, db, req, table)
	}
	return p.overview(ctx, db, d, dsn, req)
}

func (p *Provider) open(ctx context.Context, key string) (*sql.DB, error) {
	d, dsn, err := locate(key)
	if err != nil {
		return nil, err
	}
	if d.driver == sqliteDialect.driver {
		// sql.Open would create a missing file.
		if _, err := os.Stat(dsn); err != nil {
			return nil, errs.Wrap(errs.ErrCodeNotFound, err, "database %s", dsn)
		}
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "open %s", displayName(d, dsn))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "connect %s", displayName(d, dsn))
	}
	p.Logger().Debug("opened database", "driver", d.driver, "name", displayName(d, dsn))
	return db, nil
}

// overview lists the tables and views as lazy mounts.
func (p *Provider) overview(ctx context.Context, db *sql.DB, d dialect, dsn string, req mount.Request) (*tree.Tree, error) {
	rows, err := db.QueryContext(ctx, d.tables)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "list tables")
	}
	defer rows.Close()

	t := tree.New(req.Source, "db", displayName(d, dsn))
	t.Root().Meta["driver"] = d.driver
	var ids []string
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "list tables")
		}
		id := "table:" + name
		n, err := t.CreateNode("", id)
		if err != nil {
			return nil, err
		}
		n.Label = name
		n.Meta["table"] = name
		n.Meta["kind"] = strings.ToLower(kind)

		c := mount.NewContinuation("").With(paramTable, name)
		for k, v := range req.Params {
			if strings.HasPrefix(k, wherePrefix) {
				c = c.With(k, v)
			}
		}
		if err := t.SetMountPoint(id, c.String(), false); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "list tables")
	}
	if err := p.AttachBalanced(t, t.RootID(), ids); err != nil {
		return nil, err
	}
	provider.Progress(req, "%s: %d tables", t.Root().Label, len(ids))
	return t, nil
}

// Statement builds the row query of a table: the "query.<table>" macro or
// SELECT * FROM the table, expanded and narrowed by the configured clauses.
func (p *Provider) Statement(table string, params map[string]string) (string, error) {
	opts := p.Options()
	values := maps.Clone(opts.Macros)
	if values == nil {
		values = make(map[string]string)
	}
	literals := make(map[string]string)
	for k, v := range params {
		if name, ok := strings.CutPrefix(k, wherePrefix); ok {
			if strings.TrimSpace(v) != "" {
				literals[name] = query.QuoteLiteral(v)
			}
		} else if k != paramTable {
			values[k] = v
		}
	}
	literals[paramTable] = query.QuoteIdent(table)

	base, ok := opts.Macros[MacroQueryPrefix+table]
	if !ok {
		base = "SELECT * FROM ${table}"
	}
	stmt, err := query.NarrowLiterals(base, opts.Clauses, values, literals)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidConfig, err, "statement for %s", table)
	}
	return stmt, nil
}

// tableTree lists up to RowLimit rows of one table, each with its column
// values as children.
func (p *Provider) tableTree(ctx context.Context, db *sql.DB, req mount.Request, table string) (*tree.Tree, error) {
	stmt, err := p.Statement(table, req.Params)
	if err != nil {
		return nil, err
	}
	limit := p.Options().RowLimit
	p.Logger().Debug("query table", "table", table, "statement", stmt)

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", stmt, limit+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "query %s", table)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "columns of %s", table)
	}
	if len(cols) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidSource, "%s has no columns", table)
	}

	t := tree.New(req.Source, "table:"+table, table)
	t.Root().Meta["table"] = table
	t.Root().Meta["statement"] = stmt
	labelCol := pickLabelColumn(cols)

	var ids []string
	truncated := false
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if len(ids) == limit {
			truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "scan %s", table)
		}
		id, err := p.addRow(t, table, len(ids), cols, raw, labelCol)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "read %s", table)
	}
	if err := p.AttachBalanced(t, t.RootID(), ids); err != nil {
		return nil, err
	}

	t.Root().Meta["rows"] = len(ids)
	if truncated {
		t.Root().Meta["truncated"] = true
		if req.Sink != nil {
			req.Sink.Message(fmt.Sprintf("%s: showing the first %d rows", table, limit))
		}
	}
	provider.Progress(req, "%s: %d rows", table, len(ids))
	return t, nil
}

func (p *Provider) addRow(t *tree.Tree, table string, index int, cols []string, raw []any, labelCol int) (string, error) {
	id := table + "/" + strconv.Itoa(index)
	row, err := t.CreateNode("", id)
	if err != nil {
		return "", err
	}
	row.Meta["row"] = index

	values := make([]string, len(cols))
	pairs := make([]string, len(cols))
	for i, col := range cols {
		values[i] = formatValue(raw[i])
		pairs[i] = col + "=" + values[i]
	}
	row.Label = values[labelCol]
	if strings.TrimSpace(row.Label) == "" {
		row.Label = "row " + strconv.Itoa(index+1)
	}
	row.Label = p.Truncate(row.Label)
	row.Content = p.Truncate(strings.Join(pairs, ", "))

	for i, col := range cols {
		cid := id + "." + col
		n, err := t.CreateNode(id, cid)
		if err != nil {
			return "", err
		}
		n.Label = col + ": " + p.Truncate(values[i])
		n.Content = p.Truncate(values[i])
		n.Meta["column"] = col
		if raw[i] == nil {
			n.Meta["null"] = true
		}
	}
	return id, nil
}

func pickLabelColumn(cols []string) int {
	for _, want := range labelColumns {
		for i, c := range cols {
			if strings.EqualFold(c, want) {
				return i
			}
		}
	}
	return 0
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
