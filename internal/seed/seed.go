// Package seed populates an empty data store with a starter dataset so a
// fresh deployment answers queries immediately.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medsql/medsql/internal/observability"
	"github.com/medsql/medsql/internal/records"
)

type Counter interface {
	CountRecords(ctx context.Context) (int64, error)
}

type Uploader interface {
	Upload(ctx context.Context, inputs []records.RecordInput) records.UploadResult
}

// Service runs the one-shot startup seed. It only ever writes through the
// regular upload path, so seeded records get ids and timestamps the same way
// uploaded ones do.
type Service struct {
	Store    Counter
	Uploader Uploader
	Source   DatasetSource
	Logger   *slog.Logger
}

func (s *Service) ensureDefaults() {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Source == nil {
		s.Source = BuiltinSource{}
	}
}

// Run seeds the store unless it already holds records. Callers treat a
// returned error as non-fatal: the service still serves, just without data.
func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()
	if s.Store == nil {
		return fmt.Errorf("seed store is not configured")
	}
	if s.Uploader == nil {
		return fmt.Errorf("seed uploader is not configured")
	}

	count, err := s.Store.CountRecords(ctx)
	if err != nil {
		observability.ObserveSeedRun("error")
		return fmt.Errorf("count existing records: %w", err)
	}
	if count > 0 {
		s.Logger.InfoContext(ctx, "seed skipped, store already holds records",
			slog.Int64("count", count),
		)
		observability.ObserveSeedRun("skipped")
		return nil
	}

	inputs, rowErrors, err := s.Source.Load(ctx)
	if err != nil {
		observability.ObserveSeedRun("error")
		return fmt.Errorf("load dataset %s: %w", s.Source.Name(), err)
	}
	for _, rowError := range rowErrors {
		s.Logger.WarnContext(ctx, "seed dataset row rejected",
			slog.String("source", s.Source.Name()),
			slog.String("reason", rowError),
		)
	}
	if len(inputs) == 0 {
		observability.ObserveSeedRun("error")
		return fmt.Errorf("dataset %s contains no records", s.Source.Name())
	}

	result := s.Uploader.Upload(ctx, inputs)
	if !result.Success {
		observability.ObserveSeedRun("error")
		return fmt.Errorf("seed upload failed: %d of %d records rejected", len(result.Errors), result.TotalRecords)
	}
	for _, uploadError := range result.Errors {
		s.Logger.WarnContext(ctx, "seed record rejected",
			slog.String("source", s.Source.Name()),
			slog.String("reason", uploadError),
		)
	}

	s.Logger.InfoContext(ctx, "seed completed",
		slog.String("source", s.Source.Name()),
		slog.Int("uploaded", result.UploadedCount),
		slog.Int("total", result.TotalRecords),
	)
	observability.ObserveSeedRun("seeded")
	return nil
}
