// Package server exposes tree sessions over HTTP.
//
// A client opens a source, receives a session ID and then expands lazy
// nodes one request at a time; the server keeps the growing tree between
// requests.
//
//	POST   /trees                            {"source": "...", "params": {...}, "expand": 1}
//	GET    /trees                            list sessions
//	GET    /trees/{id}?format=json|outline|dot
//	POST   /trees/{id}/nodes/{node}/expand
//	DELETE /trees/{id}
//	GET    /metrics
//	GET    /health
//
// Node IDs that contain slashes are sent path-escaped ("table%2F3").
// Sources are read with the permissions of the server process, so the
// server is meant for local use.
package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// MaxExpandRounds bounds the "expand" field of a create request.
const MaxExpandRounds = 8

// Config configures a [Server].
type Config struct {
	// NewRegistry creates the provider registry of one session. Required.
	NewRegistry func() *provider.Registry
	// Logger receives request and session logs (default: log.Default).
	Logger *log.Logger
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// MaxSessions bounds the number of open sessions (0: unlimited).
	MaxSessions int
}

// Server holds the open tree sessions.
type Server struct {
	cfg    Config
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*treeSession
}

// treeSession is one growing tree. Trees are not safe for concurrent use,
// so every access goes through mu.
type treeSession struct {
	mu       sync.Mutex
	id       string
	source   string
	created  time.Time
	engine   *mount.Engine
	registry *provider.Registry
	tree     *tree.Tree
	messages []string
}

// sessionSink collects provider messages for the response. It is only
// called while the session lock is held.
type sessionSink struct{ s *treeSession }

func (k sessionSink) Progress(string)     {}
func (k sessionSink) Message(text string) { k.s.messages = append(k.s.messages, text) }

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*treeSession),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.count()})
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/trees", func(r chi.Router) {
		r.Post("/", s.createTree)
		r.Get("/", s.listTrees)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getTree)
			r.Delete("/", s.deleteTree)
			r.Post("/nodes/{node}/expand", s.expandNode)
		})
	})
	return r
}

// Close releases the backend sessions of every open tree.
func (s *Server) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*treeSession)
	s.mu.Unlock()

	var failed []error
	for _, ts := range sessions {
		if err := ts.close(); err != nil {
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// and closes every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Join(err, s.Close())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	return errors.Join(err, s.Close())
}

func (s *Server) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(id string) (*treeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.sessions[id]
	return ts, ok
}

func (s *Server) add(ts *treeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return errs.New(errs.ErrCodeInvalidInput, "session limit of %d reached", s.cfg.MaxSessions)
	}
	s.sessions[ts.id] = ts
	return nil
}

func (s *Server) remove(id string) (*treeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.sessions[id]
	delete(s.sessions, id)
	return ts, ok
}

func (s *Server) newSession(source string) *treeSession {
	reg := s.cfg.NewRegistry()
	ts := &treeSession{
		id:       uuid.NewString(),
		source:   source,
		created:  time.Now(),
		registry: reg,
	}
	ts.engine = mount.NewEngine(reg, s.logger)
	ts.engine.Sink = sessionSink{ts}
	return ts
}

func (ts *treeSession) close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.registry.Close()
}

// takeMessages returns and clears the collected provider messages.
func (ts *treeSession) takeMessages() []string {
	out := ts.messages
	ts.messages = nil
	return out
}

// sessionInfo is the summary returned by GET /trees.
type sessionInfo struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Created time.Time `json:"created"`
}

func (s *Server) listTrees(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]sessionInfo, 0, len(s.sessions))
	for _, ts := range s.sessions {
		out = append(out, sessionInfo{ID: ts.id, Source: ts.source, Created: ts.created})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
