// Package stats is the calibration analytics engine: pure functions over an
// in-memory decision collection, no I/O.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ashita-ai/kiroku/internal/model"
)

// Breakdown aggregates a bucket of reviewed decisions.
type Breakdown struct {
	Count     int     `json:"count"`
	AvgRating float64 `json:"avgRating"`
}

// StakesBreakdown additionally tracks confidence, for calibration by stakes.
type StakesBreakdown struct {
	Count         int     `json:"count"`
	AvgRating     float64 `json:"avgRating"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// Stats are the aggregate journal statistics. Averages are rounded for
// display at this boundary: confidence and gap to the nearest integer,
// rating-like averages to one decimal place.
type Stats struct {
	TotalDecisions     int `json:"totalDecisions"`
	ReviewedDecisions  int `json:"reviewedDecisions"`
	PendingReviews     int `json:"pendingReviews"`
	DecisionsThisMonth int `json:"decisionsThisMonth"`

	AvgConfidence int     `json:"avgConfidence"`
	AvgRating     float64 `json:"avgRating"`
	// CalibrationGap is avgConfidence minus the rating average mapped onto
	// 0-100 ((r-1)*25). Positive means overconfident, negative underconfident.
	CalibrationGap int `json:"calibrationGap"`

	CategoryBreakdown map[string]Breakdown       `json:"categoryBreakdown"`
	FactorBreakdown   map[string]Breakdown       `json:"factorBreakdown"`
	StakesByRating    map[string]StakesBreakdown `json:"stakesByRating"`
	QualityVsOutcome  map[string]Breakdown       `json:"qualityVsOutcome"`
}

// Calculate computes aggregate statistics as of now. Calibration figures
// consider only decisions that are reviewed and carry a rating; an empty
// subset yields zeroes, never NaN.
func Calculate(decisions []model.Decision, now time.Time) Stats {
	now = now.UTC()
	today := now.Format("2006-01-02")
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	var reviewed []model.Decision
	s := Stats{
		TotalDecisions:    len(decisions),
		CategoryBreakdown: map[string]Breakdown{},
		FactorBreakdown:   map[string]Breakdown{},
		StakesByRating:    map[string]StakesBreakdown{},
		QualityVsOutcome:  map[string]Breakdown{},
	}

	for _, d := range decisions {
		if _, ok := d.Rating(); ok {
			reviewed = append(reviewed, d)
		}
		if d.Date >= monthStart {
			s.DecisionsThisMonth++
		}
		if !d.Reviewed() && d.ReviewDate <= today {
			s.PendingReviews++
		}
	}
	s.ReviewedDecisions = len(reviewed)

	var confidenceSum, ratingSum float64
	catSums := map[string]*sums{}
	factorSums := map[string]*sums{}
	stakesSums := map[string]*sums{}
	qualitySums := map[string]*sums{}

	for _, d := range reviewed {
		rating, _ := d.Rating()
		confidenceSum += float64(d.Confidence)
		ratingSum += float64(rating)

		bump(catSums, d.Category, rating, d.Confidence)
		bump(stakesSums, string(d.Stakes), rating, d.Confidence)
		for _, f := range d.Review.ContributingFactors {
			bump(factorSums, f, rating, d.Confidence)
		}
		if q := d.Review.DecisionQuality; q != "" {
			bump(qualitySums, string(q), rating, d.Confidence)
		}
	}

	if n := float64(len(reviewed)); n > 0 {
		avgConfidence := confidenceSum / n
		avgRating := ratingSum / n
		s.AvgConfidence = int(math.Round(avgConfidence))
		s.AvgRating = round1(avgRating)
		s.CalibrationGap = int(math.Round(avgConfidence - normalizeRating(avgRating)))
	}

	for k, v := range catSums {
		s.CategoryBreakdown[k] = v.breakdown()
	}
	for k, v := range factorSums {
		s.FactorBreakdown[k] = v.breakdown()
	}
	for k, v := range qualitySums {
		s.QualityVsOutcome[k] = v.breakdown()
	}
	for k, v := range stakesSums {
		s.StakesByRating[k] = StakesBreakdown{
			Count:         v.count,
			AvgRating:     round1(v.rating / float64(v.count)),
			AvgConfidence: math.Round(v.confidence / float64(v.count)),
		}
	}
	return s
}

// normalizeRating maps the 1-5 rating scale onto 0-100 so it is directly
// comparable to confidence.
func normalizeRating(r float64) float64 { return (r - 1) * 25 }

type sums struct {
	count      int
	rating     float64
	confidence float64
}

func bump(m map[string]*sums, key string, rating, confidence int) {
	v := m[key]
	if v == nil {
		v = &sums{}
		m[key] = v
	}
	v.count++
	v.rating += float64(rating)
	v.confidence += float64(confidence)
}

func (v *sums) breakdown() Breakdown {
	return Breakdown{Count: v.count, AvgRating: round1(v.rating / float64(v.count))}
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// TimeSeriesPoint is one month of journal activity. Confidence averages over
// every decision dated in the month; Rating averages only those with a rating
// and is nil for months without one. This asymmetry is deliberate.
type TimeSeriesPoint struct {
	Month      string   `json:"month"` // YYYY-MM
	Confidence int      `json:"confidence"`
	Rating     *float64 `json:"rating"`
	Count      int      `json:"count"`
}

// TimeSeries groups decisions by the year-month they were made (not their
// review date), sorted ascending by month.
func TimeSeries(decisions []model.Decision) []TimeSeriesPoint {
	type monthSums struct {
		count       int
		confidence  float64
		ratingCount int
		ratingSum   float64
	}
	months := map[string]*monthSums{}

	for _, d := range decisions {
		if len(d.Date) < 7 {
			continue
		}
		key := d.Date[:7]
		m := months[key]
		if m == nil {
			m = &monthSums{}
			months[key] = m
		}
		m.count++
		m.confidence += float64(d.Confidence)
		if rating, ok := d.Rating(); ok {
			m.ratingCount++
			m.ratingSum += float64(rating)
		}
	}

	out := make([]TimeSeriesPoint, 0, len(months))
	for key, m := range months {
		p := TimeSeriesPoint{
			Month:      key,
			Confidence: int(math.Round(m.confidence / float64(m.count))),
			Count:      m.count,
		}
		if m.ratingCount > 0 {
			r := round1(m.ratingSum / float64(m.ratingCount))
			p.Rating = &r
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
