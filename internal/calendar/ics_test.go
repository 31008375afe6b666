package calendar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kiroku/internal/model"
)

func sample() model.Decision {
	return model.Decision{
		ID:              "abc-123",
		Title:           "Take the job",
		ChosenOption:    "yes",
		Confidence:      70,
		ExpectedOutcome: "More interesting work",
		ReviewDate:      "2024-07-01",
	}
}

func TestReviewEvent(t *testing.T) {
	ics := ReviewEvent(sample())

	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
	assert.Contains(t, ics, "VERSION:2.0\r\n")
	assert.Contains(t, ics, "UID:abc-123@decision-log\r\n")
	assert.Contains(t, ics, "SUMMARY:Review decision: Take the job\r\n")

	// All-day event: date-only start, exclusive end on the next day.
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240701\r\n")
	assert.Contains(t, ics, "DTEND;VALUE=DATE:20240702\r\n")
}

func TestReviewEvent_EscapesSpecialCharacters(t *testing.T) {
	d := sample()
	d.Title = "Rent; or buy, maybe\nboth"

	ics := ReviewEvent(d)
	assert.Contains(t, ics, `SUMMARY:Review decision: Rent\; or buy\, maybe\nboth`)
	assert.NotContains(t, ics, "SUMMARY:Review decision: Rent;")
}

func TestReviewEvent_EscapesBackslashFirst(t *testing.T) {
	d := sample()
	d.Title = `a\b;c`

	ics := ReviewEvent(d)
	assert.Contains(t, ics, `SUMMARY:Review decision: a\\b\;c`)
}

func TestReviewEvents_Multiple(t *testing.T) {
	a := sample()
	b := sample()
	b.ID = "def-456"
	b.Title = "Second decision"
	b.ReviewDate = "2024-08-15"

	ics := ReviewEvents([]model.Decision{a, b})

	// One calendar, two events.
	assert.Equal(t, 1, strings.Count(ics, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "UID:abc-123@decision-log")
	assert.Contains(t, ics, "UID:def-456@decision-log")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240815")
}

func TestReviewEvents_SkipsMissingReviewDates(t *testing.T) {
	a := sample()
	b := sample()
	b.ReviewDate = ""

	ics := ReviewEvents([]model.Decision{a, b})
	assert.Equal(t, 1, strings.Count(ics, "BEGIN:VEVENT"))
}

func TestReviewEvent_MonthBoundaryEnd(t *testing.T) {
	d := sample()
	d.ReviewDate = "2024-01-31"

	ics := ReviewEvent(d)
	require.Contains(t, ics, "DTSTART;VALUE=DATE:20240131")
	assert.Contains(t, ics, "DTEND;VALUE=DATE:20240201")
}
