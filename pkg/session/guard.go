package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecursion is returned by [Guard.Enter] when a top-level request names
// the same source as the previous one.
var ErrRecursion = errors.New("recursive source")

// Guard records the source a provider was most recently opened with and
// refuses a new top-level request for the identical source.
//
// Guard only applies to top-level requests. Mount resolutions inside one
// build are checked by the mount engine against the tree being grown.
type Guard struct {
	normalize func(string) string
	last      string
	entered   bool
}

// NewGuard creates a guard that compares sources after normalize (usually a
// URL canonicalizer). A nil normalize compares trimmed strings.
func NewGuard(normalize func(string) string) *Guard {
	return &Guard{normalize: normalize}
}

// Enter records source as the current top-level source. It returns
// ErrRecursion, and keeps the previous record, when the normalized source is
// equal to the one recorded last.
func (g *Guard) Enter(source string) error {
	key := g.key(source)
	if g.entered && key == g.last {
		return fmt.Errorf("%w: %s", ErrRecursion, key)
	}
	g.last, g.entered = key, true
	return nil
}

// Last returns the normalized source recorded by the last successful Enter.
func (g *Guard) Last() string { return g.last }

// Reset forgets the recorded source, for an explicit reload of the same
// document.
func (g *Guard) Reset() {
	g.last, g.entered = "", false
}

// Leave forgets the recorded source if it is source, so a caller that
// navigates away from a document can open it again later.
func (g *Guard) Leave(source string) {
	if g.entered && g.key(source) == g.last {
		g.Reset()
	}
}

func (g *Guard) key(source string) string {
	if g.normalize != nil {
		return g.normalize(source)
	}
	return strings.TrimSpace(source)
}
