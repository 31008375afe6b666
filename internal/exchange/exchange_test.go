package exchange

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kiroku/internal/model"
)

const validRecord = `{
	"id": "d1", "title": "take the job", "date": "2024-06-01",
	"category": "work", "decisionType": "binary",
	"options": ["yes", "no"], "chosenOption": "yes",
	"reasoning": "", "expectedOutcome": "",
	"confidence": 70, "stakes": "medium", "horizonDays": 30,
	"reviewDate": "2024-07-01", "tags": []
}`

func record(mutate func(map[string]any)) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal([]byte(validRecord), &m); err != nil {
		panic(err)
	}
	if mutate != nil {
		mutate(m)
	}
	out, _ := json.Marshal(m)
	return out
}

func TestParseImportData_Envelope(t *testing.T) {
	raw := []byte(`{"version":1,"exportedAt":"2024-06-01T00:00:00Z","decisions":[` + validRecord + `]}`)

	data, err := ParseImportData(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Version)
	assert.Equal(t, "2024-06-01T00:00:00Z", data.ExportedAt)
	assert.False(t, data.IsLegacy)
	assert.Len(t, data.Decisions, 1)
}

func TestParseImportData_LegacyBareArray(t *testing.T) {
	raw := []byte(`[` + validRecord + `]`)

	data, err := ParseImportData(raw)
	require.NoError(t, err)
	assert.True(t, data.IsLegacy)
	assert.Equal(t, SchemaVersion, data.Version)
	assert.Equal(t, LegacyExportedAt, data.ExportedAt)
	assert.Len(t, data.Decisions, 1)
}

func TestParseImportData_SyntaxVsFormatErrors(t *testing.T) {
	// Broken JSON is a syntax error.
	_, err := ParseImportData([]byte(`{"version": 1,`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	// Well-formed JSON of the wrong shape is a format error.
	for _, raw := range []string{`{"hello":"world"}`, `42`, `"text"`, `{"version":1}`} {
		_, err := ParseImportData([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidFormat, "payload %s", raw)
	}
}

func TestValidateDecisions_AllValid(t *testing.T) {
	result := ValidateDecisions([]json.RawMessage{record(nil)})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "take the job", result.Accepted[0].Title)
}

func TestValidateDecisions_BadRecordsAreSkippedNotFatal(t *testing.T) {
	records := []json.RawMessage{
		record(nil),
		record(func(m map[string]any) { m["stakes"] = "extreme" }),
		record(func(m map[string]any) { delete(m, "title") }),
	}
	result := ValidateDecisions(records)

	assert.False(t, result.Valid)
	assert.Len(t, result.Accepted, 1)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Decision 2 (take the job): invalid stakes")
	assert.Contains(t, result.Errors[1], "Decision 3 (untitled): missing or invalid title")
}

func TestValidateDecisions_AggregatesReasonsPerRecord(t *testing.T) {
	bad := record(func(m map[string]any) {
		m["confidence"] = 150
		m["horizonDays"] = 0
	})
	result := ValidateDecisions([]json.RawMessage{bad})

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "confidence must be a number 0-100")
	assert.Contains(t, result.Errors[0], "horizonDays must be a positive number")
	// Both reasons on one line for one record.
	assert.Equal(t, 1, strings.Count(result.Errors[0], "Decision 1"))
}

func TestValidateDecisions_OptionalRating(t *testing.T) {
	// Absent rating is fine.
	ok := ValidateDecisions([]json.RawMessage{record(nil)})
	assert.True(t, ok.Valid)

	// Present rating must be an integer 1-5.
	for _, v := range []any{0, 6, 3.5} {
		bad := ValidateDecisions([]json.RawMessage{record(func(m map[string]any) { m["rating"] = v })})
		assert.False(t, bad.Valid, "rating %v", v)
		assert.Contains(t, bad.Errors[0], "rating must be 1-5")
	}

	good := ValidateDecisions([]json.RawMessage{record(func(m map[string]any) { m["rating"] = 4 })})
	assert.True(t, good.Valid)
}

func TestValidateDecisions_NonObjectRecord(t *testing.T) {
	result := ValidateDecisions([]json.RawMessage{json.RawMessage(`"not an object"`)})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Decision 1 (untitled)")
}

func TestExportRoundTrip(t *testing.T) {
	decisions := []model.Decision{
		{
			ID: "d1", Title: "take the job", Date: "2024-06-01",
			Category: "work", DecisionType: model.TypeBinary,
			Options: []string{"yes", "no"}, ChosenOption: "yes",
			Confidence: 70, Stakes: model.StakesMedium,
			HorizonDays: 30, ReviewDate: "2024-07-01",
		},
	}
	export := NewExportData(decisions)
	assert.Equal(t, SchemaVersion, export.Version)
	assert.NotEmpty(t, export.ExportedAt)

	raw, err := json.Marshal(export)
	require.NoError(t, err)

	data, err := ParseImportData(raw)
	require.NoError(t, err)
	result := ValidateDecisions(data.Decisions)
	assert.True(t, result.Valid)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, decisions[0].ID, result.Accepted[0].ID)
}
