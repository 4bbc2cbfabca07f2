package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/medsql/medsql/internal/cache"
	"github.com/medsql/medsql/internal/nl2sql"
	"github.com/medsql/medsql/internal/observability"
	"github.com/medsql/medsql/internal/records"
)

// Service runs the translation pipeline: validate, cache lookup, translate,
// sanitize, guard, execute. Each stage runs at most once per request and the
// first failure short-circuits into a failure outcome. The service holds no
// per-request state, so one instance serves all transports concurrently.
type Service struct {
	Translator nl2sql.Translator
	Store      records.Store
	Cache      cache.TranslationCache
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (s *Service) ensureDefaults() {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Cache == nil {
		s.Cache = cache.Noop{}
	}
}

// Run turns one natural-language question into an Outcome. It never returns
// an error: every failure mode is folded into the outcome itself.
func (s *Service) Run(ctx context.Context, naturalLanguage string) Outcome {
	s.ensureDefaults()

	text := strings.TrimSpace(naturalLanguage)
	if text == "" {
		return failureOutcome(text, "", "invalid input: query text is required", s.Clock())
	}

	sqlText, fromCache := s.lookupCached(ctx, text)
	if !fromCache {
		start := time.Now()
		raw, err := s.Translator.Translate(ctx, text)
		if err != nil {
			observability.ObserveTranslation(observability.TranslationSourceModel, observability.OutcomeError, time.Since(start))
			s.Logger.ErrorContext(ctx, "translation failed", slog.Any("error", err))
			return failureOutcome(text, "", err.Error(), s.Clock())
		}
		observability.ObserveTranslation(observability.TranslationSourceModel, observability.OutcomeOK, time.Since(start))
		sqlText = nl2sql.Sanitize(raw)
	}

	// The guard runs for every statement right before execution, including
	// cached ones. There is no path around it.
	if err := nl2sql.EnsureReadOnly(sqlText); err != nil {
		observability.IncrementGuardRejection()
		s.Logger.WarnContext(ctx, "generated statement rejected",
			slog.String("generated_sql", sqlText),
			slog.Any("error", err),
		)
		return failureOutcome(text, sqlText, "query rejected: "+err.Error(), s.Clock())
	}

	start := time.Now()
	rows, err := s.Store.Query(ctx, sqlText)
	if err != nil {
		observability.ObserveQueryExecution(observability.OutcomeError, 0, time.Since(start))
		s.Logger.ErrorContext(ctx, "query execution failed",
			slog.String("generated_sql", sqlText),
			slog.Any("error", err),
		)
		return failureOutcome(text, sqlText, "query execution failed: "+err.Error(), s.Clock())
	}
	observability.ObserveQueryExecution(observability.OutcomeOK, len(rows), time.Since(start))

	if !fromCache {
		if err := s.Cache.Store(ctx, text, sqlText); err != nil {
			s.Logger.WarnContext(ctx, "cache store failed", slog.Any("error", err))
		}
	}

	s.Logger.InfoContext(ctx, "query pipeline completed",
		slog.String("generated_sql", sqlText),
		slog.Int("row_count", len(rows)),
		slog.Bool("cached", fromCache),
	)
	return successOutcome(text, sqlText, rows, s.Clock())
}

// lookupCached treats cache faults as misses so a degraded cache only costs
// the completion call it would have saved.
func (s *Service) lookupCached(ctx context.Context, text string) (string, bool) {
	sqlText, found, err := s.Cache.Lookup(ctx, text)
	if err != nil {
		observability.ObserveCacheLookup("error")
		s.Logger.WarnContext(ctx, "cache lookup failed", slog.Any("error", err))
		return "", false
	}
	if !found {
		observability.ObserveCacheLookup("miss")
		return "", false
	}
	observability.ObserveCacheLookup("hit")
	observability.ObserveTranslation(observability.TranslationSourceCache, observability.OutcomeOK, 0)
	return sqlText, true
}
