package nl2sql

import (
	"fmt"
	"strings"
	"unicode"
)

// Sanitize strips the markdown code fences chat models like to wrap SQL in
// and trims surrounding whitespace. It is idempotent: applying it to already
// clean output returns the input trimmed and otherwise unchanged.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```sql")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// EnsureReadOnly accepts a statement only when its leading keyword is SELECT,
// compared case-insensitively. Anything else, including an empty statement,
// is rejected. This runs immediately before execution for every statement,
// cached translations included.
func EnsureReadOnly(sqlText string) error {
	keyword := leadingKeyword(sqlText)
	if strings.EqualFold(keyword, "select") {
		return nil
	}
	if keyword == "" {
		return fmt.Errorf("%w: statement is empty", ErrNotReadOnly)
	}
	return fmt.Errorf("%w: statement starts with %q", ErrNotReadOnly, keyword)
}

// leadingKeyword returns the first run of letters after leading whitespace,
// which is how a SQL lexer would read the statement keyword.
func leadingKeyword(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for i, r := range trimmed {
		if !unicode.IsLetter(r) {
			return trimmed[:i]
		}
	}
	return trimmed
}
