package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxDepth bounds how deeply macros may expand into other macros.
const MaxDepth = 32

var (
	// ErrMacroCycle is returned when a macro expands, directly or
	// indirectly, into itself.
	ErrMacroCycle = errors.New("macro cycle")

	// ErrMacroDepth is returned when macro nesting exceeds MaxDepth.
	ErrMacroDepth = errors.New("macro nesting too deep")
)

var macroPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// Expand replaces every ${name} in text with props[name], expanding the
// substituted value again. Unknown names are kept as written.
func Expand(text string, props map[string]string) (string, error) {
	return ExpandLiterals(text, props, nil)
}

// ExpandLiterals is [Expand] with a second set of values that are inserted
// exactly as given: macros inside a literal are not expanded. Literals take
// precedence over props with the same name.
func ExpandLiterals(text string, props, literals map[string]string) (string, error) {
	return expand(text, props, literals, nil)
}

// expand carries the chain of macros currently being substituted. A name
// already on the chain is a cycle; the same name used twice side by side is
// not.
func expand(text string, props, literals map[string]string, chain []string) (string, error) {
	matches := macroPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		name := text[m[2]:m[3]]
		b.WriteString(text[last:m[0]])
		last = m[1]

		if lit, ok := literals[name]; ok {
			b.WriteString(lit)
			continue
		}
		value, ok := props[name]
		if !ok {
			b.WriteString(text[m[0]:m[1]])
			continue
		}
		for _, active := range chain {
			if active == name {
				return "", fmt.Errorf("%w: %s -> %s", ErrMacroCycle, strings.Join(chain, " -> "), name)
			}
		}
		if len(chain) >= MaxDepth {
			return "", fmt.Errorf("%w: %s", ErrMacroDepth, strings.Join(chain, " -> "))
		}
		sub, err := expand(value, props, literals, append(chain[:len(chain):len(chain)], name))
		if err != nil {
			return "", err
		}
		b.WriteString(sub)
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// Names returns the distinct macro names referenced in text, in order of
// first use.
func Names(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range macroPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
