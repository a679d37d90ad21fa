package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/render"
)

const maxBodyBytes = 1 << 20

// createRequest is the body of POST /trees.
type createRequest struct {
	Source string            `json:"source"`
	Params map[string]string `json:"params,omitempty"`
	Expand int               `json:"expand,omitempty"`
}

// treeResponse describes a session's tree.
type treeResponse struct {
	ID       string          `json:"id"`
	Source   string          `json:"source"`
	Nodes    int             `json:"nodes"`
	Lazy     []string        `json:"lazy"`
	Messages []string        `json:"messages,omitempty"`
	Tree     json.RawMessage `json:"tree"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) createTree(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Expand < 0 || req.Expand > MaxExpandRounds {
		s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "expand must be between 0 and %d", MaxExpandRounds))
		return
	}
	if s.cfg.MaxSessions > 0 && s.count() >= s.cfg.MaxSessions {
		s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "session limit of %d reached", s.cfg.MaxSessions))
		return
	}

	ts := s.newSession(req.Source)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t, err := ts.engine.Open(r.Context(), req.Source, req.Params)
	if err != nil {
		ts.registry.Close()
		s.writeError(w, err)
		return
	}
	ts.tree = t
	if req.Expand > 0 {
		if _, err := ts.engine.ExpandAll(r.Context(), t, req.Expand); err != nil {
			s.logger.Debug("expand on open", "session", ts.id, "err", err)
		}
	}
	if err := s.add(ts); err != nil {
		ts.registry.Close()
		s.writeError(w, err)
		return
	}
	s.logger.Info("opened tree", "session", ts.id, "source", req.Source, "nodes", t.NodeCount())
	s.writeTree(w, http.StatusCreated, ts, false)
}

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.session(w, r)
	if !ok {
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()

	switch r.URL.Query().Get("format") {
	case "", "json":
		s.writeTree(w, http.StatusOK, ts, r.URL.Query().Get("meta") == "true")
	case "outline":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := render.Outline(w, ts.tree, render.WithIDs()); err != nil {
			s.logger.Warn("write outline", "err", err)
		}
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		io.WriteString(w, render.DOT(ts.tree, render.DOTOptions{}))
	default:
		s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want json, outline or dot)", r.URL.Query().Get("format")))
	}
}

func (s *Server) deleteTree(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.remove(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, errs.New(errs.ErrCodeNotFound, "no tree session %s", chi.URLParam(r, "id")))
		return
	}
	if err := ts.close(); err != nil {
		s.logger.Warn("close session", "session", ts.id, "err", err)
	}
	s.logger.Info("closed tree", "session", ts.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) expandNode(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.session(w, r)
	if !ok {
		return
	}
	node, err := url.PathUnescape(chi.URLParam(r, "node"))
	if err == nil {
		err = errs.ValidateNodeID(node)
	}
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "node id"))
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.engine.Resolve(r.Context(), ts.tree, node); err != nil {
		ts.takeMessages()
		s.writeError(w, err)
		return
	}
	s.writeTree(w, http.StatusOK, ts, false)
}

// session looks up the session named in the URL or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*treeSession, bool) {
	id := chi.URLParam(r, "id")
	ts, ok := s.lookup(id)
	if !ok {
		s.writeError(w, errs.New(errs.ErrCodeNotFound, "no tree session %s", id))
	}
	return ts, ok
}

// writeTree writes the session's tree. The caller holds ts.mu.
func (s *Server) writeTree(w http.ResponseWriter, status int, ts *treeSession, meta bool) {
	var opts []render.JSONOption
	if meta {
		opts = append(opts, render.WithJSONMeta())
	}
	data, err := render.JSON(ts.tree, opts...)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "render tree"))
		return
	}
	lazy := ts.tree.MountPoints()
	if lazy == nil {
		lazy = []string{}
	}
	writeJSON(w, status, treeResponse{
		ID:       ts.id,
		Source:   ts.source,
		Nodes:    ts.tree.NodeCount(),
		Lazy:     lazy,
		Messages: ts.takeMessages(),
		Tree:     data,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errs.UserMessage(err), Code: string(errs.GetCode(err))})
}

// statusFor maps the outermost error code to an HTTP status.
func statusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidSource, errs.ErrCodeInvalidPath,
		errs.ErrCodeUnsupportedSource, errs.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	case errs.ErrCodeRecursion, errs.ErrCodeNotMountable:
		return http.StatusConflict
	case errs.ErrCodeMountFailed:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeBackendUnavailable, errs.ErrCodeNetwork:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
