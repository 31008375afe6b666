// Package model defines the decision journal's core entities.
package model

import "time"

// DecisionType classifies the shape of a choice.
type DecisionType string

const (
	TypeBinary DecisionType = "binary"
	TypeMulti  DecisionType = "multi"
	TypeOpen   DecisionType = "open"
)

// Stakes is the subjective importance of a decision.
type Stakes string

const (
	StakesLow    Stakes = "low"
	StakesMedium Stakes = "medium"
	StakesHigh   Stakes = "high"
)

// Rank returns the ordinal position of a stakes level (low < medium < high).
// Unknown values rank below low.
func (s Stakes) Rank() int {
	switch s {
	case StakesLow:
		return 1
	case StakesMedium:
		return 2
	case StakesHigh:
		return 3
	}
	return 0
}

// MatchLevel grades how well the actual outcome matched the expectation.
type MatchLevel string

const (
	MatchExceeded MatchLevel = "exceeded"
	MatchMet      MatchLevel = "met"
	MatchPartial  MatchLevel = "partial"
	MatchMissed   MatchLevel = "missed"
)

// Quality is a retrospective grade of the decision process itself,
// independent of how the outcome turned out.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// ContributingFactors is the fixed vocabulary for the structured review field
// of the same name.
var ContributingFactors = []string{
	"Good information",
	"Right timing",
	"Proper research",
	"Intuition",
	"Luck",
	"Poor information",
	"Bad timing",
	"External factors",
	"Rushed decision",
	"Overthinking",
}

// Decision is the aggregate root of the journal: a choice made on a date,
// with stated reasoning and confidence, and a scheduled future review.
//
// Review state is a sum type: a nil Review means the decision is pending;
// a non-nil Review means it has been reviewed. The repository never persists
// anything in between.
type Decision struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Date            string       `json:"date"` // YYYY-MM-DD
	Category        string       `json:"category"`
	DecisionType    DecisionType `json:"decisionType"`
	Options         []string     `json:"options"`
	ChosenOption    string       `json:"chosenOption"`
	Reasoning       string       `json:"reasoning"`
	ExpectedOutcome string       `json:"expectedOutcome"`
	Confidence      int          `json:"confidence"` // 0-100
	Stakes          Stakes       `json:"stakes"`
	HorizonDays     int          `json:"horizonDays"`
	ReviewDate      string       `json:"reviewDate"` // YYYY-MM-DD, derived from Date + HorizonDays
	Tags            []string     `json:"tags"`

	Review *Review `json:"-"`
}

// Review holds the outcome of a reviewed decision. ActualOutcome and Rating
// are required when recorded through the repository; imported legacy data may
// carry a zero Rating, which the analytics engine treats as "no rating".
type Review struct {
	ReviewedAt      time.Time
	ActualOutcome   string
	Rating          int // 1-5
	LessonsLearned  string
	SameChoiceAgain bool

	// Optional structured fields.
	OutcomeMatchedExpectation MatchLevel
	ContributingFactors       []string
	DecisionQuality           Quality
}

// Reviewed reports whether the decision has been reviewed.
func (d Decision) Reviewed() bool { return d.Review != nil }

// Rating returns the review rating, if one is present.
func (d Decision) Rating() (int, bool) {
	if d.Review == nil || d.Review.Rating < 1 {
		return 0, false
	}
	return d.Review.Rating, true
}
