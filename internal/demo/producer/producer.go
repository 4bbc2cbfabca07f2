// Package producer implements the demo load generator. It posts batches of
// synthetic vital-sign readings to a running API so the query endpoints have
// fresh data to work against.
package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
}

type uploadRequest struct {
	Records []UploadRecord `json:"records"`
}

type uploadResponse struct {
	UploadedCount int      `json:"uploaded_count"`
	TotalRecords  int      `json:"total_records"`
	Errors        []string `json:"errors"`
	Success       bool     `json:"success"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("batch size must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

// Run publishes one batch immediately and then one per interval until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.produceOnce(ctx); err != nil {
			s.log.Error("failed to publish demo batch", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) produceOnce(ctx context.Context) error {
	batch := s.generator.NextBatch(s.cfg.BatchSize)

	status, body, err := s.postBatch(ctx, uploadRequest{Records: batch})
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upload request status %d: %s", status, strings.TrimSpace(string(body)))
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("upload rejected all %d records: %s", result.TotalRecords, firstError(result.Errors))
	}

	// A partially rejected batch still moved data; log it and keep going.
	if len(result.Errors) > 0 {
		s.log.Warn("demo batch partially rejected",
			slog.Int("uploaded_count", result.UploadedCount),
			slog.Int("total_records", result.TotalRecords),
			slog.String("first_error", result.Errors[0]),
		)
		return nil
	}

	s.log.Info("published demo batch",
		slog.Int("batch_size", len(batch)),
		slog.Int("uploaded_count", result.UploadedCount),
	)
	return nil
}

func (s *Service) postBatch(ctx context.Context, payload uploadRequest) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/v1/medical-data", bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return "no error detail"
	}
	return errs[0]
}
