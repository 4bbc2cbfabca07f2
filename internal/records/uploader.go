package records

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medsql/medsql/internal/observability"
)

// UploadResult reports a batch upload. Success means at least one record was
// persisted; failures are reported per record and never abort the batch.
type UploadResult struct {
	UploadedCount int      `json:"uploaded_count"`
	TotalRecords  int      `json:"total_records"`
	Errors        []string `json:"errors"`
	Success       bool     `json:"success"`
	Timestamp     string   `json:"timestamp"`
}

// Uploader validates and persists record batches. NewID and Clock exist for
// deterministic tests and default to uuid.NewString and time.Now.
type Uploader struct {
	Store  Store
	Logger *slog.Logger
	NewID  func() string
	Clock  func() time.Time
}

func (u *Uploader) ensureDefaults() {
	if u.Logger == nil {
		u.Logger = slog.Default()
	}
	if u.NewID == nil {
		u.NewID = uuid.NewString
	}
	if u.Clock == nil {
		u.Clock = time.Now
	}
}

// Upload processes each input independently: validation failures and store
// errors are collected as "record N: reason" entries while the remaining
// records continue.
func (u *Uploader) Upload(ctx context.Context, inputs []RecordInput) UploadResult {
	u.ensureDefaults()
	result := UploadResult{
		TotalRecords: len(inputs),
		Errors:       []string{},
	}
	for i, input := range inputs {
		if err := input.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		record := NewRecord(input, u.NewID(), u.Clock())
		if err := u.Store.CreateRecord(ctx, record); err != nil {
			u.Logger.Warn("create record failed", "index", i, "medcode", record.MEDCode, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		result.UploadedCount++
	}
	result.Success = result.UploadedCount > 0
	result.Timestamp = u.Clock().UTC().Format(time.RFC3339)
	observability.ObserveUpload(result.UploadedCount, len(result.Errors))
	return result
}
