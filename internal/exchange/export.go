// Package exchange implements the schema-versioned export envelope, import
// parsing with legacy-format detection, and per-record validation.
package exchange

import (
	"time"

	"github.com/ashita-ai/kiroku/internal/model"
)

// SchemaVersion is the current export envelope schema version.
const SchemaVersion = 1

// LegacyExportedAt marks envelopes synthesized from the legacy bare-array
// format, which carried no export timestamp.
const LegacyExportedAt = "unknown"

// ExportData is the versioned envelope written by export, pushed to the
// remote document, and accepted by import.
type ExportData struct {
	Version    int              `json:"version"`
	ExportedAt string           `json:"exportedAt"`
	Decisions  []model.Decision `json:"decisions"`
}

// NewExportData wraps decisions in a current-version envelope stamped now.
func NewExportData(decisions []model.Decision) ExportData {
	if decisions == nil {
		decisions = []model.Decision{}
	}
	return ExportData{
		Version:    SchemaVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Decisions:  decisions,
	}
}
