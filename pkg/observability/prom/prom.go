// Package prom exports observability hooks as Prometheus metrics.
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	m.Register()
//	http.Handle("/metrics", promhttp.Handler())
//
// Labels are kept to low-cardinality values: provider names, URL schemes,
// hosts and status codes. Sources and continuations never become labels.
package prom

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/graftwood/pkg/observability"
)

const namespace = "graftwood"

// Metrics implements every hook interface of the observability package.
type Metrics struct {
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	buildNodes    *prometheus.HistogramVec
	inflight      *prometheus.GaugeVec
	mounts        *prometheus.CounterVec
	mountDuration *prometheus.HistogramVec

	sessions *prometheus.CounterVec

	cache      *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

var (
	_ observability.MountHooks   = (*Metrics)(nil)
	_ observability.SessionHooks = (*Metrics)(nil)
	_ observability.CacheHooks   = (*Metrics)(nil)
	_ observability.HTTPHooks    = (*Metrics)(nil)
)

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Provider tree builds by provider and outcome",
		}, []string{"provider", "status"}),
		buildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of provider tree builds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"provider"}),
		buildNodes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_nodes",
			Help:      "Nodes per built tree",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"provider"}),
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "builds_in_flight",
			Help:      "Provider tree builds currently running",
		}, []string{"provider"}),
		mounts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mounts_total",
			Help:      "Mount point resolutions by provider and outcome",
		}, []string{"provider", "status"}),
		mountDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mount_duration_seconds",
			Help:      "Duration of successful mount resolutions",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"provider", "eager"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Backend session cache events by scheme",
		}, []string{"scheme", "event"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Document cache lookups and writes",
		}, []string{"type", "result"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the document cache",
		}, []string{"type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Outgoing HTTP requests by host and status code",
		}, []string{"method", "host", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of outgoing HTTP requests",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Outgoing HTTP requests that failed without a response",
		}, []string{"method", "host"}),
	}
}

// Register installs m as the process-wide hooks.
func (m *Metrics) Register() {
	observability.SetMountHooks(m)
	observability.SetSessionHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnBuildStart(_ context.Context, provider, _ string) {
	m.inflight.WithLabelValues(provider).Inc()
}

func (m *Metrics) OnBuildComplete(_ context.Context, provider, _ string, nodeCount int, d time.Duration, err error) {
	m.inflight.WithLabelValues(provider).Dec()
	m.builds.WithLabelValues(provider, status(err)).Inc()
	if err == nil {
		m.buildDuration.WithLabelValues(provider).Observe(d.Seconds())
		m.buildNodes.WithLabelValues(provider).Observe(float64(nodeCount))
	}
}

func (m *Metrics) OnMountResolved(_ context.Context, provider, _ string, eager bool, d time.Duration) {
	m.mounts.WithLabelValues(provider, "ok").Inc()
	m.mountDuration.WithLabelValues(provider, strconv.FormatBool(eager)).Observe(d.Seconds())
}

func (m *Metrics) OnMountFailed(_ context.Context, provider, _, _ string) {
	m.mounts.WithLabelValues(provider, "error").Inc()
}

func (m *Metrics) OnSessionOpen(_ context.Context, key string, err error) {
	event := "open"
	if err != nil {
		event = "open_error"
	}
	m.sessions.WithLabelValues(scheme(key), event).Inc()
}

func (m *Metrics) OnSessionReuse(_ context.Context, key string) {
	m.sessions.WithLabelValues(scheme(key), "reuse").Inc()
}

func (m *Metrics) OnSessionClose(_ context.Context, key string, err error) {
	event := "close"
	if err != nil {
		event = "close_error"
	}
	m.sessions.WithLabelValues(scheme(key), event).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cache.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, host, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(method, host).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// scheme reduces a session key to its URL scheme; bare paths are files.
func scheme(key string) string {
	u, err := url.Parse(key)
	if err != nil || len(u.Scheme) < 2 {
		return "file"
	}
	return u.Scheme
}
