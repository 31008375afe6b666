package exchange

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashita-ai/kiroku/internal/model"
)

// FieldError tags one failed check on one record.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationResult reports per-record diagnostics plus the accepted subset.
// Callers may import Accepted even when Valid is false (partial-import
// policy); remote pull treats any diagnostic as fatal instead.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Accepted []model.Decision
}

// rule is one independent field check against a raw record.
// Rules see the decoded JSON value (or absence) and return a reason on failure.
type rule struct {
	field string
	check func(v any, present bool) string
}

var decisionRules = []rule{
	{"id", nonEmptyString("missing or invalid id")},
	{"title", nonEmptyString("missing or invalid title")},
	{"date", nonEmptyString("missing or invalid date")},
	{"category", nonEmptyString("missing or invalid category")},
	{"chosenOption", nonEmptyString("missing or invalid chosenOption")},
	{"reviewDate", nonEmptyString("missing or invalid reviewDate")},
	{"decisionType", oneOf("invalid decisionType", "binary", "multi", "open")},
	{"stakes", oneOf("invalid stakes", "low", "medium", "high")},
	{"options", isArray("options must be an array")},
	{"tags", isArray("tags must be an array")},
	{"confidence", numberInRange("confidence must be a number 0-100", 0, 100)},
	{"horizonDays", positiveNumber("horizonDays must be a positive number")},
	{"rating", optionalRating("rating must be 1-5")},
}

// CheckRecord runs every rule against one raw record and returns the failed
// checks. An empty result means the record is well-formed.
func CheckRecord(record map[string]any) []FieldError {
	var errs []FieldError
	for _, r := range decisionRules {
		v, present := record[r.field]
		if reason := r.check(v, present); reason != "" {
			errs = append(errs, FieldError{Field: r.field, Reason: reason})
		}
	}
	return errs
}

// ValidateDecisions checks each candidate record independently. A record with
// any failing check is excluded and contributes one aggregated diagnostic
// line; records with no failures are accepted verbatim.
func ValidateDecisions(records []json.RawMessage) ValidationResult {
	result := ValidationResult{Accepted: []model.Decision{}}

	for i, raw := range records {
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Decision %d (untitled): not an object", i+1))
			continue
		}

		if errs := CheckRecord(record); len(errs) > 0 {
			reasons := make([]string, len(errs))
			for j, e := range errs {
				reasons[j] = e.Reason
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("Decision %d (%s): %s", i+1, titleOf(record), strings.Join(reasons, ", ")))
			continue
		}

		var d model.Decision
		if err := json.Unmarshal(raw, &d); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Decision %d (%s): malformed record", i+1, titleOf(record)))
			continue
		}
		result.Accepted = append(result.Accepted, d)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func titleOf(record map[string]any) string {
	if title, ok := record["title"].(string); ok && title != "" {
		return title
	}
	return "untitled"
}

// ── Checks ─────────────────────────────────────────────────────────────────────

func nonEmptyString(reason string) func(any, bool) string {
	return func(v any, present bool) string {
		s, ok := v.(string)
		if !present || !ok || s == "" {
			return reason
		}
		return ""
	}
}

func oneOf(reason string, allowed ...string) func(any, bool) string {
	return func(v any, present bool) string {
		s, ok := v.(string)
		if !present || !ok {
			return reason
		}
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return reason
	}
}

func isArray(reason string) func(any, bool) string {
	return func(v any, present bool) string {
		if _, ok := v.([]any); !present || !ok {
			return reason
		}
		return ""
	}
}

func numberInRange(reason string, min, max float64) func(any, bool) string {
	return func(v any, present bool) string {
		n, ok := v.(float64)
		if !present || !ok || n < min || n > max {
			return reason
		}
		return ""
	}
}

func positiveNumber(reason string) func(any, bool) string {
	return func(v any, present bool) string {
		n, ok := v.(float64)
		if !present || !ok || n < 1 {
			return reason
		}
		return ""
	}
}

// optionalRating passes when absent, and otherwise requires an integer 1-5.
func optionalRating(reason string) func(any, bool) string {
	return func(v any, present bool) string {
		if !present {
			return ""
		}
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) || n < 1 || n > 5 {
			return reason
		}
		return ""
	}
}
