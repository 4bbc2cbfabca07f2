package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medsql/medsql/internal/auth"
	"github.com/medsql/medsql/internal/records"
)

type uploadRequest struct {
	Records []uploadRecord `json:"records"`
}

// uploadRecord is the wire form of one candidate record. Pointer fields keep
// absent distinguishable from zero; id and timestamp are not accepted and
// unknown fields fail the decode.
type uploadRecord struct {
	MEDCode *int64     `json:"MEDCode"`
	Slot    *int64     `json:"Slot"`
	Value   *flexValue `json:"Value"`
}

// flexValue accepts a JSON string or number and keeps it as its string form,
// matching the document model where Value is always text.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = flexValue(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*v = flexValue(number.String())
		return nil
	}
	return fmt.Errorf("value must be a string or number")
}

func handleUploadRecords(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Uploader == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "UPLOADER_NOT_CONFIGURED", "record uploader is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleWrite); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request uploadRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON: "+err.Error(), false, nil)
		return
	}
	if len(request.Records) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "RECORDS_REQUIRED", "no records provided in request", false, nil)
		return
	}

	inputs := make([]records.RecordInput, 0, len(request.Records))
	for _, record := range request.Records {
		input := records.RecordInput{
			MEDCode: record.MEDCode,
			Slot:    record.Slot,
		}
		if record.Value != nil {
			value := string(*record.Value)
			input.Value = &value
		}
		inputs = append(inputs, input)
	}

	result := deps.Uploader.Upload(r.Context(), inputs)
	writeJSON(w, http.StatusOK, result)
}
