package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRecord = errors.New("invalid medical record")

// MedicalRecord is one triplet document. MEDCode, Slot and Value come from the
// caller; ID and Timestamp are assigned by the writer and never accepted on upload.
type MedicalRecord struct {
	ID        string
	MEDCode   int64
	Slot      int64
	Value     string
	Timestamp time.Time
}

// RecordInput is a candidate record before validation. Pointers distinguish
// a missing field from a zero value.
type RecordInput struct {
	MEDCode *int64
	Slot    *int64
	Value   *string
}

func (in RecordInput) MissingFields() []string {
	var missing []string
	if in.MEDCode == nil {
		missing = append(missing, "MEDCode")
	}
	if in.Slot == nil {
		missing = append(missing, "Slot")
	}
	if in.Value == nil {
		missing = append(missing, "Value")
	}
	return missing
}

func (in RecordInput) Validate() error {
	missing := in.MissingFields()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing required field(s): %s", ErrInvalidRecord, strings.Join(missing, ", "))
}

// NewRecord materializes a validated input into a stored record. The caller
// supplies the fresh identifier and capture time.
func NewRecord(in RecordInput, id string, at time.Time) MedicalRecord {
	return MedicalRecord{
		ID:        id,
		MEDCode:   *in.MEDCode,
		Slot:      *in.Slot,
		Value:     *in.Value,
		Timestamp: at.UTC(),
	}
}

// Store is the data-store collaborator. Query executes an already guarded
// SELECT and returns rows keyed by canonical column names; SampleRecords
// returns up to limit rows ordered by MEDCode ascending.
type Store interface {
	Query(ctx context.Context, sqlText string) ([]map[string]any, error)
	CreateRecord(ctx context.Context, record MedicalRecord) error
	SampleRecords(ctx context.Context, limit int) ([]map[string]any, error)
	CountRecords(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context) error
}
