// Package query expands ${name} macros and narrows SQL statements with
// optional WHERE clauses.
//
// [Expand] substitutes macros recursively: a substituted value may itself
// contain macros. Names without a value are left verbatim so that text meant
// for a later stage survives. A macro that (directly or through other macros)
// refers back to itself is reported as [ErrMacroCycle] instead of recursing
// forever, and nesting deeper than [MaxDepth] is reported as [ErrMacroDepth].
//
// [Narrow] appends [Clause] conditions to a base statement. The first clause
// is introduced with WHERE unless the statement already has a top-level
// WHERE, in which case AND is used; every later clause uses AND. Clauses
// whose value is absent or blank are skipped, so a statement narrowed with no
// values is returned unchanged.
//
//	stmt, err := query.Narrow("SELECT * FROM ${table}",
//	    []query.Clause{{Name: "city", Template: "city = ${city}"}},
//	    map[string]string{"table": "people", "city": query.QuoteLiteral("Oslo")})
//	// SELECT * FROM people WHERE (city = 'Oslo')
package query
