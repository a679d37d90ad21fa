package sqldb

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/query"
	"github.com/matzehuels/graftwood/pkg/tree"
)

type recordingSink struct {
	messages []string
}

func (s *recordingSink) Progress(string)     {}
func (s *recordingSink) Message(text string) { s.messages = append(s.messages, text) }

// createDB writes a small SQLite database into a temp dir.
func createDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, city TEXT, age INTEGER)`,
		`INSERT INTO people (name, city, age) VALUES ('Ada', 'London', 36), ('Nils', 'Oslo', 17), ('Kari', 'Oslo', 52)`,
		`CREATE TABLE pets (owner INTEGER, species TEXT)`,
		`INSERT INTO pets VALUES (1, 'cat'), (3, NULL)`,
		`CREATE VIEW adults AS SELECT * FROM people WHERE age >= 18`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	return path
}

func newEngine(opts provider.Options) (*mount.Engine, *provider.Registry, *recordingSink) {
	logger := log.New(io.Discard)
	opts.Logger = logger
	reg := provider.NewRegistry(opts, Format)
	e := mount.NewEngine(reg, logger)
	sink := &recordingSink{}
	e.Sink = sink
	return e, reg, sink
}

func labels(t *tree.Tree, id string) []string {
	var out []string
	for _, n := range t.ChildNodes(id) {
		out = append(out, n.Label)
	}
	return out
}

// resolveTable resolves a table placeholder and returns the grafted root.
func resolveTable(t *testing.T, e *mount.Engine, tr *tree.Tree, table string) string {
	t.Helper()
	if err := e.Resolve(context.Background(), tr, "table:"+table); err != nil {
		t.Fatalf("Resolve(%s) error: %v", table, err)
	}
	grafted := tr.Children("table:" + table)
	if len(grafted) != 1 {
		t.Fatalf("grafted under %s: %v", table, grafted)
	}
	return grafted[0]
}

func TestLocate(t *testing.T) {
	tests := []struct {
		doc    string
		driver string
		dsn    string
	}{
		{"sqlite:///data/app.db", "sqlite", filepath.FromSlash("/data/app.db")},
		{"sqlite:app.db", "sqlite", "app.db"},
		{"file:///data/app.db", "sqlite", filepath.FromSlash("/data/app.db")},
		{"/data/app.sqlite", "sqlite", "/data/app.sqlite"},
		{"postgres://bob@db.local/shop?sslmode=disable", "postgres", "postgres://bob@db.local/shop"},
		{"POSTGRESQL://db.local/shop", "postgres", "postgresql://db.local/shop"},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			d, dsn, err := locate(tt.doc)
			if err != nil {
				t.Fatal(err)
			}
			if d.driver != tt.driver || dsn != tt.dsn {
				t.Errorf("locate(%q) = %s %q, want %s %q", tt.doc, d.driver, dsn, tt.driver, tt.dsn)
			}
		})
	}

	if _, _, err := locate("mysql://db/x"); !errs.Is(err, errs.ErrCodeUnsupportedSource) {
		t.Errorf("mysql = %v, want UNSUPPORTED_SOURCE", err)
	}
	if _, _, err := locate("sqlite:"); !errs.Is(err, errs.ErrCodeInvalidSource) {
		t.Errorf("empty sqlite path = %v, want INVALID_SOURCE", err)
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName(sqliteDialect, filepath.FromSlash("/data/app.db")); got != "app.db" {
		t.Errorf("sqlite name = %q", got)
	}
	if got := displayName(postgresDialect, "postgres://bob@db.local:5432/shop"); got != "shop@db.local:5432" {
		t.Errorf("postgres name = %q", got)
	}
}

func TestStatement(t *testing.T) {
	p, err := New(provider.Options{
		Macros: map[string]string{
			"query.people": "SELECT * FROM ${table} WHERE age >= ${minage};",
			"minage":       "18",
		},
		Clauses: []query.Clause{
			{Name: "city", Template: "city = ${city}"},
			{Name: "name", Template: "name LIKE ${name}"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	sp := p.(*Provider)

	tests := []struct {
		name   string
		table  string
		params map[string]string
		want   string
	}{
		{"default", "pets", nil, `SELECT * FROM "pets"`},
		{"clause", "pets", map[string]string{"where.city": "Oslo"}, `SELECT * FROM "pets" WHERE (city = 'Oslo')`},
		{"configured query", "people", nil, `SELECT * FROM "people" WHERE age >= 18`},
		{"param overrides macro", "people", map[string]string{"minage": "30"}, `SELECT * FROM "people" WHERE age >= 30`},
		{"clauses after where", "people", map[string]string{"where.city": "O'Neill", "where.name": "K%"},
			`SELECT * FROM "people" WHERE age >= 18 AND (city = 'O''Neill') AND (name LIKE 'K%')`},
		{"blank clause skipped", "pets", map[string]string{"where.city": " "}, `SELECT * FROM "pets"`},
		{"empty clause skipped", "people", map[string]string{"where.city": ""}, `SELECT * FROM "people" WHERE age >= 18`},
		{"clause value not expanded", "pets", map[string]string{"where.city": "${minage}"}, `SELECT * FROM "pets" WHERE (city = '${minage}')`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sp.Statement(tt.table, tt.params)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Statement() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatement_ClauseValueCannotReachMacros(t *testing.T) {
	p, err := New(provider.Options{
		Macros:  map[string]string{"secret": "x' OR '1'='1"},
		Clauses: []query.Clause{{Name: "city", Template: "city = ${city}"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.(*Provider).Statement("people", map[string]string{"where.city": "${secret}"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT * FROM "people" WHERE (city = '${secret}')`; got != want {
		t.Errorf("Statement() = %q, want %q", got, want)
	}
}

func TestStatement_MacroCycle(t *testing.T) {
	p, _ := New(provider.Options{Macros: map[string]string{"query.t": "SELECT ${a}", "a": "${b}", "b": "${a}"}})
	if _, err := p.(*Provider).Statement("t", nil); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("cycle = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestBuildTree_Overview(t *testing.T) {
	doc := createDB(t)
	e, reg, _ := newEngine(provider.Options{})
	defer reg.Close()

	tr, err := e.Open(context.Background(), doc, map[string]string{"where.city": "Oslo"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if tr.Root().Label != "people.db" {
		t.Errorf("root label = %q", tr.Root().Label)
	}
	if got := labels(tr, "db"); !slices.Equal(got, []string{"adults", "people", "pets"}) {
		t.Errorf("tables = %v", got)
	}
	if got := tr.MountPoints(); len(got) != 3 {
		t.Fatalf("MountPoints() = %v", got)
	}
	adults, _ := tr.Node("table:adults")
	if adults.Meta["kind"] != "view" {
		t.Errorf("adults kind = %v", adults.Meta["kind"])
	}
	c, err := mount.ParseContinuation(adults.Mount.Continuation)
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("table") != "adults" || c.Get("where.city") != "Oslo" {
		t.Errorf("continuation = %q", adults.Mount.Continuation)
	}
	if c.Document != doc {
		t.Errorf("continuation document = %q, want %q", c.Document, doc)
	}
}

func TestBuildTree_ResolveTables(t *testing.T) {
	doc := createDB(t)
	e, reg, _ := newEngine(provider.Options{})
	defer reg.Close()
	ctx := context.Background()

	tr, err := e.Open(ctx, doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	people := resolveTable(t, e, tr, "people")
	if got := labels(tr, people); !slices.Equal(got, []string{"Ada", "Nils", "Kari"}) {
		t.Errorf("rows = %v", got)
	}
	ada := tr.Children(people)[0]
	if got := labels(tr, ada); !slices.Equal(got, []string{"id: 1", "name: Ada", "city: London", "age: 36"}) {
		t.Errorf("columns = %v", got)
	}
	if n, _ := tr.Node(ada); n.Content != "id=1, name=Ada, city=London, age=36" {
		t.Errorf("row content = %q", n.Content)
	}

	pets := resolveTable(t, e, tr, "pets")
	rows := tr.Children(pets)
	if got := labels(tr, pets); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("pet rows = %v", got)
	}
	species := tr.ChildNodes(rows[1])[1]
	if species.Label != "species: NULL" || species.Meta["null"] != true {
		t.Errorf("NULL column = %+v", species)
	}
	if err := tr.Validate(); err != nil {
		t.Error(err)
	}
}

func TestBuildTree_NarrowAndLimit(t *testing.T) {
	doc := createDB(t)
	e, reg, sink := newEngine(provider.Options{
		RowLimit: 1,
		Clauses:  []query.Clause{{Name: "city", Template: "city = ${city}"}},
	})
	defer reg.Close()
	ctx := context.Background()

	tr, err := e.Build(ctx, doc+"?table=people&where.city=Oslo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(tr, tr.RootID()); !slices.Equal(got, []string{"Nils"}) {
		t.Errorf("rows = %v", got)
	}
	if tr.Root().Meta["truncated"] != true {
		t.Error("two matching rows with limit 1 should be marked truncated")
	}
	if len(sink.messages) != 1 || !strings.Contains(sink.messages[0], "first 1 rows") {
		t.Errorf("messages = %v", sink.messages)
	}
	if stmt := tr.Root().Meta["statement"]; stmt != `SELECT * FROM "people" WHERE (city = 'Oslo')` {
		t.Errorf("statement = %v", stmt)
	}
}

func TestBuildTree_Errors(t *testing.T) {
	dir := t.TempDir()
	e, reg, _ := newEngine(provider.Options{})
	defer reg.Close()
	ctx := context.Background()

	if _, err := e.Build(ctx, filepath.Join(dir, "missing.db"), nil); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("missing file = %v, want NOT_FOUND", err)
	}

	doc := createDB(t)
	if _, err := e.Build(ctx, doc+"?table=nope", nil); !errs.Is(err, errs.ErrCodeBackendUnavailable) {
		t.Errorf("unknown table = %v, want BACKEND_UNAVAILABLE", err)
	}
}

func TestProvider_ReusesConnection(t *testing.T) {
	doc := createDB(t)
	p, err := New(provider.Options{Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	sp := p.(*Provider)
	defer sp.Close()
	ctx := context.Background()

	if _, err := sp.BuildTree(ctx, mount.Request{Source: doc}); err != nil {
		t.Fatal(err)
	}
	first, _ := sp.dbs.Get(ctx, mount.DocumentKey(doc))
	if _, err := sp.BuildTree(ctx, mount.Request{Source: doc + "?table=pets", Params: map[string]string{"table": "pets"}}); err != nil {
		t.Fatal(err)
	}
	second, _ := sp.dbs.Get(ctx, mount.DocumentKey(doc))
	if first != second {
		t.Error("building another table of the same database should reuse the connection pool")
	}
}
