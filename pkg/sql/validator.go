// Package sql holds local checks applied to generated SQL and to
// user-supplied identifiers before they reach the BI backend.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyQuery indicates nothing but whitespace and comments was supplied.
	ErrEmptyQuery = errors.New("empty SQL statement")

	// ErrMultipleStatements indicates the query contains more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the statement is not a query.
	ErrNotReadOnly = errors.New("only SELECT or WITH queries are permitted")
)

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize trims the statement, strips one trailing semicolon and
// rejects empty input, multiple statements and anything that does not start
// with SELECT or WITH.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlQuery))

	body := skipLeadingComments(normalized)
	if body == "" {
		return ValidationResult{Error: ErrEmptyQuery}
	}

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	if !startsWithQueryKeyword(body) {
		return ValidationResult{Error: ErrNotReadOnly}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings reports a semicolon outside quoted literals and
// identifiers. Both backslash and doubled-quote escapes are honoured.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	var quote rune
	prev := rune(0)

	for _, ch := range sqlQuery {
		switch {
		case quote == 0 && ch == ';':
			return true
		case quote == 0 && (ch == '\'' || ch == '"'):
			quote = ch
		case quote != 0 && ch == quote && prev != '\\':
			// A doubled quote closes and immediately reopens, staying in the literal.
			quote = 0
		}
		prev = ch
	}

	return false
}

func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if trimmed, ok := strings.CutSuffix(sqlQuery, ";"); ok {
		return strings.TrimRight(trimmed, " \t\n\r")
	}
	return sqlQuery
}

// skipLeadingComments drops leading "--" line comments and "/* */" blocks.
func skipLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx == -1 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx == -1 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

func startsWithQueryKeyword(s string) bool {
	s = strings.TrimLeft(s, "( \t\r\n")
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end == -1 {
		end = len(s)
	}
	switch strings.ToUpper(s[:end]) {
	case "SELECT", "WITH":
		return true
	}
	return false
}
