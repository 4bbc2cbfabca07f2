package nl2sql

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps every completion-side failure: misconfiguration,
// transport errors, non-2xx responses and empty completions. Callers surface
// it as a degraded translation rather than a fault.
var ErrUnavailable = errors.New("completion unavailable")

// ErrNotReadOnly is returned by the read-only guard for any generated
// statement whose leading keyword is not SELECT.
var ErrNotReadOnly = errors.New("only SELECT queries are allowed")

// Translator produces a raw model completion for a natural-language request.
// The output may carry markdown fencing; callers sanitize and guard it before
// execution. Healthy reports whether the translator is usable at all and
// never performs a network call.
type Translator interface {
	Translate(ctx context.Context, naturalLanguage string) (string, error)
	Healthy() error
}

// Unavailable stands in when no provider could be configured. The server
// still boots; every translation and health probe reports the configuration
// problem instead.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Translate(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("%w: %v", ErrUnavailable, u.reason())
}

func (u Unavailable) Healthy() error {
	return fmt.Errorf("%w: %v", ErrUnavailable, u.reason())
}

func (u Unavailable) reason() error {
	if u.Reason == nil {
		return errors.New("translator is not configured")
	}
	return u.Reason
}
