package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/medsql/medsql/internal/records"
	"github.com/medsql/medsql/internal/storage"
)

// DatasetSource yields the records used to populate an empty store.
type DatasetSource interface {
	Name() string
	Load(ctx context.Context) ([]records.RecordInput, []string, error)
}

type triplet struct {
	medCode int64
	slot    int64
	value   string
}

// builtinTriplets mirrors the demonstration CSV the service was first loaded
// with: per MEDCode, slot 150 carries the measurement name or raw code and
// the following slots carry readings.
var builtinTriplets = []triplet{
	{1302, 150, "19928"},
	{1302, 151, "Blood pressure systolic"},
	{1302, 152, "120"},
	{1303, 150, "Blood pressure diastolic"},
	{1303, 151, "80"},
	{1304, 150, "Heart rate"},
	{1304, 151, "72"},
	{1305, 150, "Temperature"},
	{1305, 151, "98.6"},
	{1306, 150, "Sodium level"},
	{1306, 151, "142"},
	{1307, 150, "Glucose"},
	{1307, 151, "95"},
}

// BuiltinSource serves the fixed demonstration dataset.
type BuiltinSource struct{}

func (BuiltinSource) Name() string { return "builtin" }

func (BuiltinSource) Load(_ context.Context) ([]records.RecordInput, []string, error) {
	inputs := make([]records.RecordInput, 0, len(builtinTriplets))
	for _, entry := range builtinTriplets {
		medCode := entry.medCode
		slot := entry.slot
		value := entry.value
		inputs = append(inputs, records.RecordInput{MEDCode: &medCode, Slot: &slot, Value: &value})
	}
	return inputs, nil, nil
}

// ObjectSource loads a CSV dataset from object storage.
type ObjectSource struct {
	Objects storage.ObjectStore
	Key     string
}

func (s ObjectSource) Name() string { return "object:" + s.Key }

func (s ObjectSource) Load(ctx context.Context) ([]records.RecordInput, []string, error) {
	if s.Objects == nil {
		return nil, nil, fmt.Errorf("object store is not configured")
	}
	if strings.TrimSpace(s.Key) == "" {
		return nil, nil, fmt.Errorf("dataset object key is required")
	}

	if _, err := s.Objects.Stat(ctx, s.Key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("dataset object %q does not exist", s.Key)
		}
		return nil, nil, fmt.Errorf("stat dataset object: %w", err)
	}

	reader, err := s.Objects.Get(ctx, s.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch dataset object: %w", err)
	}
	defer reader.Close()

	return ParseCSV(reader)
}

// ParseCSV reads a MEDCode,Slot,Value dataset. The header row is mandatory.
// Rows that cannot be parsed are reported as "row N: ..." strings, counted
// from the first data row, and do not stop the rest of the file.
func ParseCSV(r io.Reader) ([]records.RecordInput, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if !headerMatches(header) {
		return nil, nil, fmt.Errorf("csv header must be MEDCode,Slot,Value, got %q", strings.Join(header, ","))
	}

	var (
		inputs    []records.RecordInput
		rowErrors []string
	)
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				rowErrors = append(rowErrors, fmt.Sprintf("row %d: expected 3 fields, got %d", row, len(fields)))
				continue
			}
			return nil, nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		medCode, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: invalid MEDCode %q", row, fields[0]))
			continue
		}
		slot, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: invalid Slot %q", row, fields[1]))
			continue
		}
		value := fields[2]
		inputs = append(inputs, records.RecordInput{MEDCode: &medCode, Slot: &slot, Value: &value})
	}
	return inputs, rowErrors, nil
}

func headerMatches(header []string) bool {
	if len(header) != 3 {
		return false
	}
	want := []string{"MEDCode", "Slot", "Value"}
	for i, column := range header {
		if !strings.EqualFold(strings.TrimSpace(column), want[i]) {
			return false
		}
	}
	return true
}
