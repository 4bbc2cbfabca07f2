// Package cache memoizes successful natural-language translations so repeat
// questions skip the completion call entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const keyPrefix = "medsql:nl2sql:"

// TranslationCache stores guarded SQL keyed by the originating question.
// Lookup reports (sql, found, err); an error is a cache-side fault, not a
// miss. Implementations must be safe for concurrent use.
type TranslationCache interface {
	Lookup(ctx context.Context, naturalLanguage string) (string, bool, error)
	Store(ctx context.Context, naturalLanguage, sqlText string) error
	Close() error
}

// Key normalizes the question (trimmed, lower-cased) and hashes it so
// arbitrary text never appears verbatim in key listings.
func Key(naturalLanguage string) string {
	normalized := strings.ToLower(strings.TrimSpace(naturalLanguage))
	sum := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Noop satisfies TranslationCache when caching is disabled: every lookup is
// a miss and stores are dropped.
type Noop struct{}

func (Noop) Lookup(ctx context.Context, naturalLanguage string) (string, bool, error) {
	return "", false, nil
}

func (Noop) Store(ctx context.Context, naturalLanguage, sqlText string) error { return nil }

func (Noop) Close() error { return nil }
