package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/graftwood/pkg/observability"
)

func TestMetrics_Builds(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnBuildStart(ctx, "text", "a.txt")
	if got := testutil.ToFloat64(m.inflight.WithLabelValues("text")); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	m.OnBuildComplete(ctx, "text", "a.txt", 12, 3*time.Millisecond, nil)
	m.OnBuildStart(ctx, "text", "b.txt")
	m.OnBuildComplete(ctx, "text", "b.txt", 0, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.inflight.WithLabelValues("text")); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.builds.WithLabelValues("text", "ok")); got != 1 {
		t.Errorf("ok builds = %v", got)
	}
	if got := testutil.ToFloat64(m.builds.WithLabelValues("text", "error")); got != 1 {
		t.Errorf("failed builds = %v", got)
	}
	if got := testutil.CollectAndCount(m.buildDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestMetrics_MountsSessionsCache(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnMountResolved(ctx, "sql", "db?table=a", true, time.Millisecond)
	m.OnMountFailed(ctx, "sql", "db?table=b", "no such table")
	m.OnSessionOpen(ctx, "postgres://db/shop", nil)
	m.OnSessionReuse(ctx, "postgres://db/shop")
	m.OnSessionReuse(ctx, "file:///x.db")
	m.OnSessionClose(ctx, "/tmp/x.txt", errors.New("busy"))
	m.OnCacheMiss(ctx, "document")
	m.OnCacheSet(ctx, "document", 512)
	m.OnCacheHit(ctx, "document")

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"mount ok", m.mounts.WithLabelValues("sql", "ok"), 1},
		{"mount error", m.mounts.WithLabelValues("sql", "error"), 1},
		{"postgres open", m.sessions.WithLabelValues("postgres", "open"), 1},
		{"postgres reuse", m.sessions.WithLabelValues("postgres", "reuse"), 1},
		{"file reuse", m.sessions.WithLabelValues("file", "reuse"), 1},
		{"bare path close", m.sessions.WithLabelValues("file", "close_error"), 1},
		{"cache miss", m.cache.WithLabelValues("document", "miss"), 1},
		{"cache hit", m.cache.WithLabelValues("document", "hit"), 1},
		{"cache bytes", m.cacheBytes.WithLabelValues("document"), 512},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMetrics_HTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()
	m.OnRequest(ctx, "GET", "example.org", "/a.xml")
	m.OnResponse(ctx, "GET", "example.org", "/a.xml", 200, 20*time.Millisecond)
	m.OnError(ctx, "GET", "example.org", "/b.xml", errors.New("timeout"))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "example.org", "200")); got != 1 {
		t.Errorf("requests = %v", got)
	}
	if got := testutil.ToFloat64(m.httpErrors.WithLabelValues("GET", "example.org")); got != 1 {
		t.Errorf("errors = %v", got)
	}
}

func TestMetrics_Register(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Register()
	if observability.Mount() != observability.MountHooks(m) || observability.Cache() != observability.CacheHooks(m) {
		t.Error("Register should install the metrics as hooks")
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering the same metrics twice should panic")
		}
	}()
	New(reg)
}
