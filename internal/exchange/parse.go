package exchange

import (
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidJSON reports a JSON syntax error in the import payload.
	ErrInvalidJSON = errors.New("exchange: invalid JSON")
	// ErrInvalidFormat reports well-formed JSON that is neither a versioned
	// envelope nor a legacy bare array.
	ErrInvalidFormat = errors.New("exchange: unrecognized format")
)

// ImportData is a parsed import payload. Decisions stay raw so the validator
// can inspect records without committing to an in-memory representation.
type ImportData struct {
	Version    int
	ExportedAt string
	IsLegacy   bool
	Decisions  []json.RawMessage
}

type envelopeJSON struct {
	Version    int               `json:"version"`
	ExportedAt string            `json:"exportedAt"`
	Decisions  []json.RawMessage `json:"decisions"`
}

// ParseImportData detects the payload format. A top level with version and
// decisions fields is the current envelope; a bare array is the legacy format
// and gets a synthesized version-1 envelope; anything else is a format error.
func ParseImportData(raw []byte) (ImportData, error) {
	if !json.Valid(raw) {
		return ImportData{}, ErrInvalidJSON
	}

	var env envelopeJSON
	if err := json.Unmarshal(raw, &env); err == nil && env.Version != 0 && env.Decisions != nil {
		return ImportData{
			Version:    env.Version,
			ExportedAt: env.ExportedAt,
			Decisions:  env.Decisions,
		}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err == nil {
		return ImportData{
			Version:    SchemaVersion,
			ExportedAt: LegacyExportedAt,
			IsLegacy:   true,
			Decisions:  records,
		}, nil
	}

	return ImportData{}, ErrInvalidFormat
}
