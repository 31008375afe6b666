package model

import (
	"encoding/json"
	"time"
)

// decisionJSON is the flat wire representation used by the export file format,
// the remote sync document, and the persistent store. Review fields sit at the
// top level and are omitted entirely while the decision is pending.
type decisionJSON struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Date            string       `json:"date"`
	Category        string       `json:"category"`
	DecisionType    DecisionType `json:"decisionType"`
	Options         []string     `json:"options"`
	ChosenOption    string       `json:"chosenOption"`
	Reasoning       string       `json:"reasoning"`
	ExpectedOutcome string       `json:"expectedOutcome"`
	Confidence      int          `json:"confidence"`
	Stakes          Stakes       `json:"stakes"`
	HorizonDays     int          `json:"horizonDays"`
	ReviewDate      string       `json:"reviewDate"`
	Tags            []string     `json:"tags"`

	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ActualOutcome   *string    `json:"actualOutcome,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	LessonsLearned  *string    `json:"lessonsLearned,omitempty"`
	SameChoiceAgain *bool      `json:"sameChoiceAgain,omitempty"`

	OutcomeMatchedExpectation *MatchLevel `json:"outcomeMatchedExpectation,omitempty"`
	ContributingFactors       []string    `json:"contributingFactors,omitempty"`
	DecisionQuality           *Quality    `json:"decisionQuality,omitempty"`
}

// MarshalJSON flattens the Review sum type into the wire shape.
func (d Decision) MarshalJSON() ([]byte, error) {
	w := decisionJSON{
		ID:              d.ID,
		Title:           d.Title,
		Date:            d.Date,
		Category:        d.Category,
		DecisionType:    d.DecisionType,
		Options:         d.Options,
		ChosenOption:    d.ChosenOption,
		Reasoning:       d.Reasoning,
		ExpectedOutcome: d.ExpectedOutcome,
		Confidence:      d.Confidence,
		Stakes:          d.Stakes,
		HorizonDays:     d.HorizonDays,
		ReviewDate:      d.ReviewDate,
		Tags:            d.Tags,
	}
	if w.Options == nil {
		w.Options = []string{}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	if r := d.Review; r != nil {
		at := r.ReviewedAt
		w.ReviewedAt = &at
		w.ActualOutcome = &r.ActualOutcome
		w.LessonsLearned = &r.LessonsLearned
		w.SameChoiceAgain = &r.SameChoiceAgain
		if r.Rating >= 1 {
			rating := r.Rating
			w.Rating = &rating
		}
		if r.OutcomeMatchedExpectation != "" {
			m := r.OutcomeMatchedExpectation
			w.OutcomeMatchedExpectation = &m
		}
		if len(r.ContributingFactors) > 0 {
			w.ContributingFactors = r.ContributingFactors
		}
		if r.DecisionQuality != "" {
			q := r.DecisionQuality
			w.DecisionQuality = &q
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the Review sum type from the flat wire shape.
// A record with no reviewedAt is pending regardless of any stray review fields.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var w decisionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Decision{
		ID:              w.ID,
		Title:           w.Title,
		Date:            w.Date,
		Category:        w.Category,
		DecisionType:    w.DecisionType,
		Options:         w.Options,
		ChosenOption:    w.ChosenOption,
		Reasoning:       w.Reasoning,
		ExpectedOutcome: w.ExpectedOutcome,
		Confidence:      w.Confidence,
		Stakes:          w.Stakes,
		HorizonDays:     w.HorizonDays,
		ReviewDate:      w.ReviewDate,
		Tags:            w.Tags,
	}
	if w.ReviewedAt == nil {
		return nil
	}
	r := &Review{ReviewedAt: *w.ReviewedAt}
	if w.ActualOutcome != nil {
		r.ActualOutcome = *w.ActualOutcome
	}
	if w.Rating != nil {
		r.Rating = *w.Rating
	}
	if w.LessonsLearned != nil {
		r.LessonsLearned = *w.LessonsLearned
	}
	if w.SameChoiceAgain != nil {
		r.SameChoiceAgain = *w.SameChoiceAgain
	}
	if w.OutcomeMatchedExpectation != nil {
		r.OutcomeMatchedExpectation = *w.OutcomeMatchedExpectation
	}
	r.ContributingFactors = w.ContributingFactors
	if w.DecisionQuality != nil {
		r.DecisionQuality = *w.DecisionQuality
	}
	d.Review = r
	return nil
}
