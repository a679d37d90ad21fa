package mount

import (
	"maps"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

// Continuation is the decoded form of a continuation token:
// "<document>?key=value&...". The document part may be a URL, a bare file
// path, or empty (meaning "the document this token appears in").
type Continuation struct {
	Document string
	Params   url.Values
}

// NewContinuation creates a continuation for document with no parameters.
func NewContinuation(document string) Continuation {
	return Continuation{Document: document, Params: url.Values{}}
}

// ParseContinuation splits a token into its document and query parameters.
// A fragment after the query is dropped.
func ParseContinuation(raw string) (Continuation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Continuation{}, errs.New(errs.ErrCodeInvalidInput, "continuation is empty")
	}
	doc, query, hasQuery := strings.Cut(raw, "?")
	c := Continuation{Document: doc, Params: url.Values{}}
	if !hasQuery {
		return c, nil
	}
	query, _, _ = strings.Cut(query, "#")
	params, err := url.ParseQuery(query)
	if err != nil {
		return Continuation{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid continuation query %q", query)
	}
	c.Params = params
	return c, nil
}

// Get returns the first value of a parameter.
func (c Continuation) Get(key string) string { return c.Params.Get(key) }

// With returns a copy of c with key set to value. An empty value removes
// the key.
func (c Continuation) With(key, value string) Continuation {
	params := make(url.Values, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = slices.Clone(v)
	}
	if value == "" {
		params.Del(key)
	} else {
		params.Set(key, value)
	}
	return Continuation{Document: c.Document, Params: params}
}

// String encodes the continuation. Parameters are sorted by key, so equal
// continuations always encode identically.
func (c Continuation) String() string {
	if len(c.Params) == 0 {
		return c.Document
	}
	return c.Document + "?" + c.Params.Encode()
}

// Values flattens the parameters to their first value.
func (c Continuation) Values() map[string]string {
	out := make(map[string]string, len(c.Params))
	for k := range c.Params {
		out[k] = c.Params.Get(k)
	}
	return out
}

// ResolveReference makes raw absolute against base, the source of the
// document raw appears in. An empty document part refers to base's own
// document; relative paths resolve against base's directory.
func ResolveReference(base, raw string) (string, error) {
	c, err := ParseContinuation(raw)
	if err != nil {
		return "", err
	}
	baseDoc := ""
	if b, err := ParseContinuation(base); err == nil {
		baseDoc = b.Document
	}

	switch {
	case c.Document == "":
		c.Document = baseDoc
	case hasScheme(c.Document), baseDoc == "":
	case hasScheme(baseDoc):
		bu, err := url.Parse(baseDoc)
		if err != nil {
			return "", errs.Wrap(errs.ErrCodeInvalidSource, err, "invalid base %q", baseDoc)
		}
		ref, err := url.Parse(filepath.ToSlash(c.Document))
		if err != nil {
			return "", errs.Wrap(errs.ErrCodeInvalidSource, err, "invalid reference %q", c.Document)
		}
		c.Document = bu.ResolveReference(ref).String()
	case !filepath.IsAbs(c.Document):
		c.Document = filepath.Join(filepath.Dir(baseDoc), c.Document)
	}
	return c.String(), nil
}

// Canonical normalizes a continuation or source for equality checks: the
// scheme and host are lower-cased, the path is cleaned, bare paths become
// absolute file:// URLs, parameters are sorted and the fragment is dropped.
// Tokens that cannot be parsed are returned trimmed.
func Canonical(raw string) string {
	c, err := ParseContinuation(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	c.Document = canonicalDocument(c.Document)
	return c.String()
}

// DocumentKey is the canonical form of the document part alone. Backend
// sessions are keyed by it, so continuations that differ only in their
// parameters share one session.
func DocumentKey(raw string) string {
	c, err := ParseContinuation(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return canonicalDocument(c.Document)
}

// FilePath returns the local path of a file:// URL or bare path, and false
// for any other scheme.
func FilePath(document string) (string, bool) {
	if !hasScheme(document) {
		return document, true
	}
	u, err := url.Parse(document)
	if err != nil || !strings.EqualFold(u.Scheme, "file") {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

func canonicalDocument(doc string) string {
	if doc == "" {
		return ""
	}
	if !hasScheme(doc) {
		abs, err := filepath.Abs(doc)
		if err != nil {
			return filepath.ToSlash(filepath.Clean(doc))
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	u, err := url.Parse(doc)
	if err != nil {
		return doc
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path != "" {
		u.Path = path.Clean(u.Path)
		u.RawPath = ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// hasScheme reports whether s starts with a URL scheme. Single-letter
// schemes are Windows drive letters, not schemes.
func hasScheme(s string) bool {
	i := strings.Index(s, ":")
	if i < 2 {
		return false
	}
	for j, r := range s[:i] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// JoinTargets encodes a set of target names as "a+b+c", dropping empty and
// repeated names.
func JoinTargets(targets ...string) string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return strings.Join(out, "+")
}

// SplitTargets decodes a "+"-joined target set. Spaces also separate
// targets, since query decoding turns a literal "+" into a space.
func SplitTargets(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ' ' }) {
		out[t] = true
	}
	return out
}

// SortedTargets returns the names of a target set in sorted order.
func SortedTargets(set map[string]bool) []string {
	return slices.Sorted(maps.Keys(set))
}
