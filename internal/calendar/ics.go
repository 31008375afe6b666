// Package calendar renders decision review dates as iCalendar all-day
// events, importable into any calendar application.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashita-ai/kiroku/internal/model"
)

const prodID = "-//Decision Log//Review Reminders//EN"

// ReviewEvent renders a single decision's review reminder as a complete
// VCALENDAR document.
func ReviewEvent(d model.Decision) string {
	var b strings.Builder
	writeHeader(&b)
	writeEvent(&b, d)
	writeFooter(&b)
	return b.String()
}

// ReviewEvents renders one document holding a reminder per decision.
// Decisions without a review date are skipped.
func ReviewEvents(decisions []model.Decision) string {
	var b strings.Builder
	writeHeader(&b)
	for _, d := range decisions {
		if d.ReviewDate == "" {
			continue
		}
		writeEvent(&b, d)
	}
	writeFooter(&b)
	return b.String()
}

func writeHeader(b *strings.Builder) {
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:" + prodID + "\r\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("END:VCALENDAR\r\n")
}

// writeEvent emits one all-day VEVENT. All-day events use a date-only
// DTSTART and an exclusive DTEND on the following day.
func writeEvent(b *strings.Builder, d model.Decision) {
	start := formatICSDate(d.ReviewDate)
	if start == "" {
		return
	}
	end := nextDay(d.ReviewDate)

	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(b, "UID:%s@decision-log\r\n", d.ID)
	fmt.Fprintf(b, "DTSTART;VALUE=DATE:%s\r\n", start)
	fmt.Fprintf(b, "DTEND;VALUE=DATE:%s\r\n", end)
	fmt.Fprintf(b, "SUMMARY:%s\r\n", escapeICS("Review decision: "+d.Title))
	fmt.Fprintf(b, "DESCRIPTION:%s\r\n", escapeICS(eventDescription(d)))
	b.WriteString("END:VEVENT\r\n")
}

func eventDescription(d model.Decision) string {
	parts := []string{
		"Decision: " + d.Title,
		"Chosen: " + d.ChosenOption,
		fmt.Sprintf("Confidence: %d%%", d.Confidence),
	}
	if d.ExpectedOutcome != "" {
		parts = append(parts, "Expected: "+d.ExpectedOutcome)
	}
	return strings.Join(parts, "\n")
}

// formatICSDate converts YYYY-MM-DD to the compact YYYYMMDD form. Unparsable
// dates yield an empty string and the event is dropped.
func formatICSDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Format("20060102")
}

func nextDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format("20060102")
}

// escapeICS escapes text per RFC 5545: backslash first, then semicolons,
// commas, and newlines.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
