package query

import (
	"fmt"
	"strings"
	"unicode"
)

// Clause is a named narrowing condition. Template is an SQL boolean
// expression that usually refers to its own value as ${Name}.
type Clause struct {
	Name     string `toml:"name"`
	Template string `toml:"template"`
}

// Narrow expands macros in base and appends every clause that has a
// non-blank value in values. Clause templates are expanded against values.
// A trailing semicolon on base is dropped.
func Narrow(base string, clauses []Clause, values map[string]string) (string, error) {
	return NarrowLiterals(base, clauses, values, nil)
}

// NarrowLiterals is [Narrow] with clause values kept apart from macros.
// A literal is substituted as written (see [ExpandLiterals]), so text that
// came from a request cannot pull in configured macros. A clause is applied
// when its name has a non-blank literal, or a non-blank macro value when no
// literal is given.
func NarrowLiterals(base string, clauses []Clause, macros, literals map[string]string) (string, error) {
	stmt, err := ExpandLiterals(base, macros, literals)
	if err != nil {
		return "", fmt.Errorf("expand statement: %w", err)
	}
	stmt = strings.TrimRight(strings.TrimSpace(stmt), "; \t\n")

	hasWhere := HasWhere(stmt)
	for _, c := range clauses {
		value, ok := literals[c.Name]
		if !ok {
			value = macros[c.Name]
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		cond, err := ExpandLiterals(c.Template, macros, literals)
		if err != nil {
			return "", fmt.Errorf("expand clause %s: %w", c.Name, err)
		}
		if hasWhere {
			stmt += " AND (" + cond + ")"
		} else {
			stmt += " WHERE (" + cond + ")"
			hasWhere = true
		}
	}
	return stmt, nil
}

// HasWhere reports whether stmt contains a WHERE keyword at the top level:
// matched case-insensitively as a whole word, outside quoted literals and
// outside parentheses.
func HasWhere(stmt string) bool {
	var quote rune
	depth := 0
	runes := []rune(stmt)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (r == 'w' || r == 'W'):
			if i > 0 && isIdent(runes[i-1]) {
				continue
			}
			end := i + len("where")
			if end > len(runes) || !strings.EqualFold(string(runes[i:end]), "where") {
				continue
			}
			if end < len(runes) && isIdent(runes[end]) {
				continue
			}
			return true
		}
	}
	return false
}

// QuoteLiteral renders s as an SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdent renders s as a double-quoted SQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
