package provider

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
)

// Format describes one source format: the URL schemes and document
// extensions it claims and how to create its provider.
type Format struct {
	Name       string
	Schemes    []string // e.g. "postgres", "mongodb"
	Extensions []string // e.g. ".txt", ".onto.toml"
	New        func(opts Options) (mount.Provider, error)
}

// Registry routes sources to providers. It implements [mount.Router].
//
// Each format gets one provider instance, created on first use and reused
// afterwards, so the provider's backend session and recursion guard live as
// long as the registry. Use one registry per open document (a CLI run, a TUI
// window, a server tree session). A Registry is not safe for concurrent use.
type Registry struct {
	opts      Options
	formats   []*Format
	instances map[string]mount.Provider
}

// NewRegistry creates a registry for the given formats. Later formats win
// over earlier ones that claim the same scheme or extension.
func NewRegistry(opts Options, formats ...*Format) *Registry {
	r := &Registry{
		opts:      opts.WithDefaults(),
		instances: make(map[string]mount.Provider),
	}
	for _, f := range formats {
		r.Register(f)
	}
	return r
}

// Register adds a format.
func (r *Registry) Register(f *Format) {
	r.formats = append(r.formats, f)
}

// Formats returns the registered formats.
func (r *Registry) Formats() []*Format { return slices.Clone(r.formats) }

// Options returns the options providers are created with.
func (r *Registry) Options() Options { return r.opts }

// Lookup returns the format for a source. Non-transport schemes (anything
// but file, http and https) select by scheme; otherwise the longest matching
// document extension wins.
func (r *Registry) Lookup(source string) (*Format, error) {
	doc := mount.DocumentKey(source)
	u, err := url.Parse(doc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "malformed source %q", source)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "", "file", "http", "https":
	default:
		for i := len(r.formats) - 1; i >= 0; i-- {
			if slices.Contains(r.formats[i].Schemes, scheme) {
				return r.formats[i], nil
			}
		}
	}

	name := strings.ToLower(u.Path)
	var best *Format
	bestLen := 0
	for i := len(r.formats) - 1; i >= 0; i-- {
		for _, ext := range r.formats[i].Extensions {
			if len(ext) > bestLen && strings.HasSuffix(name, strings.ToLower(ext)) {
				best, bestLen = r.formats[i], len(ext)
			}
		}
	}
	if best == nil {
		return nil, errs.New(errs.ErrCodeUnsupportedSource, "no provider for %s (available: %s)", source, r.names())
	}
	return best, nil
}

// ProviderFor implements [mount.Router].
func (r *Registry) ProviderFor(source string) (mount.Provider, error) {
	f, err := r.Lookup(source)
	if err != nil {
		return nil, err
	}
	if p, ok := r.instances[f.Name]; ok {
		return p, nil
	}
	p, err := f.New(r.opts)
	if err != nil {
		if errs.GetCode(err) == "" {
			err = errs.Wrap(errs.ErrCodeInvalidConfig, err, "create %s provider", f.Name)
		}
		return nil, err
	}
	r.instances[f.Name] = p
	return p, nil
}

// Close releases the backend sessions of every provider created so far.
func (r *Registry) Close() error {
	var failed []error
	for name, p := range r.instances {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				failed = append(failed, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	clear(r.instances)
	return errors.Join(failed...)
}

func (r *Registry) names() string {
	names := make([]string, len(r.formats))
	for i, f := range r.formats {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}
