package mount

import (
	"context"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Provider turns a backend source into a [tree.Tree].
//
// BuildTree is called for top-level requests and for every mount resolution.
// The returned tree's source should be req.Source so that grafted subtrees
// record where they came from. Returning a nil tree with a nil error counts
// as a failure.
type Provider interface {
	Name() string
	BuildTree(ctx context.Context, req Request) (*tree.Tree, error)
}

// Request is the input of [Provider.BuildTree].
type Request struct {
	// Source is the absolute continuation being built, including its query.
	Source string
	// Base is the document the request was made from, or nil for top-level
	// requests.
	Base *url.URL
	// Params holds the continuation's query parameters (first value per
	// key), overlaid with caller-supplied parameters.
	Params map[string]string
	// Sink receives user-visible progress and diagnostics.
	Sink Sink
}

// Document returns the document part of Source.
func (r Request) Document() string {
	c, err := ParseContinuation(r.Source)
	if err != nil {
		return r.Source
	}
	return c.Document
}

// Param returns a request parameter, or def when it is absent or empty.
func (r Request) Param(key, def string) string {
	if v := r.Params[key]; v != "" {
		return v
	}
	return def
}

// Router selects the provider for a source.
type Router interface {
	ProviderFor(source string) (Provider, error)
}

// Guarded is implemented by providers that refuse to reopen the top-level
// source they were last opened with.
type Guarded interface {
	Guard() *session.Guard
}

// Sink receives user-visible status from providers and the engine.
type Sink interface {
	Progress(text string)
	Message(text string)
}

// LogSink reports progress at debug level and messages as warnings.
type LogSink struct {
	Logger *log.Logger
}

// Progress implements [Sink].
func (s LogSink) Progress(text string) { s.logger().Debug(text) }

// Message implements [Sink].
func (s LogSink) Message(text string) { s.logger().Warn(text) }

func (s LogSink) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Progress(string) {}
func (NopSink) Message(string)  {}
