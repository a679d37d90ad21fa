package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

const sampleConfig = `
depth = 2
max_bytes = 80

[balance]
max_children_per_level = [8, 4]
label_truncate_count = 2

[balance.style]
fill_color = "lightyellow"

[sql]
row_limit = 200
[sql.macros]
"query.people" = "SELECT * FROM people WHERE age >= ${min_age}"
min_age = "18"
[[sql.clauses]]
name = "city"
template = "city = ${city}"

[mongo]
document_limit = 300

[cache]
backend = "none"
ttl = "90m"

[server]
addr = "127.0.0.1:9000"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearCacheEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envCacheBackend, "")
	t.Setenv(envRedisAddr, "")
	t.Setenv(envRedisPassword, "")
}

func TestLoadConfig(t *testing.T) {
	clearCacheEnv(t)
	cfg, err := loadConfig(writeConfig(t, sampleConfig), true)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if !slices.Equal(cfg.Balance.MaxChildrenPerLevel, []int{8, 4}) || cfg.Balance.LabelTruncateCount != 2 {
		t.Errorf("balance = %+v", cfg.Balance.Config)
	}
	if cfg.Balance.Style.FillColor != "lightyellow" {
		t.Errorf("group style = %+v", cfg.Balance.Style)
	}
	if cfg.Cache.Backend != backendNone || cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}

	opts := cfg.providerOptions()
	if opts.Depth != 2 || opts.MaxBytes != 80 {
		t.Errorf("depth %d, max bytes %d", opts.Depth, opts.MaxBytes)
	}
	if opts.RowLimit != 200 || opts.DocumentLimit != 300 {
		t.Errorf("limits = %d/%d, want 200 rows and 300 documents", opts.RowLimit, opts.DocumentLimit)
	}
	if opts.Macros["min_age"] != "18" || len(opts.Clauses) != 1 || opts.Clauses[0].Name != "city" {
		t.Errorf("macros %v, clauses %v", opts.Macros, opts.Clauses)
	}
}

func TestProviderOptions_SmallDocumentLimit(t *testing.T) {
	cfg := Config{SQL: SQLConfig{RowLimit: 500}, Mongo: MongoConfig{DocumentLimit: 50}}
	opts := cfg.providerOptions()
	if opts.DocumentLimit != 50 {
		t.Errorf("DocumentLimit = %d, want 50 regardless of the sql row limit", opts.DocumentLimit)
	}
	if opts.RowLimit != 500 {
		t.Errorf("RowLimit = %d, want 500", opts.RowLimit)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearCacheEnv(t)
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
	if cfg.Cache.Backend != backendFile || cfg.Cache.Prefix != "graftwood:" {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
	if len(cfg.Balance.MaxChildrenPerLevel) == 0 {
		t.Error("balance defaults missing")
	}

	if _, err := loadConfig(missing, true); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("missing --config file = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearCacheEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "depth = ["},
		{"unknown key", "colour = 1"},
		{"bad duration", "[cache]\nttl = \"soon\""},
		{"unknown backend", "[cache]\nbackend = \"memcached\""},
		{"redis without address", "[cache]\nbackend = \"redis\""},
		{"zero fan-out", "[balance]\nmax_children_per_level = [0]"},
		{"fan-out of one at the top", "[balance]\nmax_children_per_level = [20, 1]"},
		{"negative depth", "depth = -1"},
		{"clause without template", "[[sql.clauses]]\nname = \"city\""},
		{"duplicate clause", "[[sql.clauses]]\nname = \"a\"\ntemplate = \"x\"\n[[sql.clauses]]\nname = \"a\"\ntemplate = \"y\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.content), true); !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("loadConfig() = %v, want INVALID_CONFIGURATION", err)
			}
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	clearCacheEnv(t)
	t.Setenv(envRedisAddr, "redis.local:6379")
	t.Setenv(envRedisPassword, "secret")

	cfg, err := loadConfig("", false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != backendRedis || cfg.Cache.Redis.Addr != "redis.local:6379" || cfg.Cache.Redis.Password != "secret" {
		t.Errorf("redis address should select the redis backend: %+v", cfg.Cache)
	}

	t.Setenv(envCacheBackend, backendNone)
	cfg, err = loadConfig("", false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != backendNone {
		t.Errorf("%s should win over the redis address, got %q", envCacheBackend, cfg.Cache.Backend)
	}
}
