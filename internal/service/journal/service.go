// Package journal provides the decision repository: CRUD, review scheduling,
// filtering, sorting, and due-review queries over the persistent store.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

// ErrInvalidReview is returned by RecordReview when a required field is
// missing. The review is not partially applied.
var ErrInvalidReview = errors.New("journal: review requires an actual outcome and a rating between 1 and 5")

// Service is the decision repository.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNow overrides the clock, used by tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a decision repository over the given store.
func New(db *storage.DB, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{db: db, logger: logger, now: time.Now}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// ComputeReviewDate advances a YYYY-MM-DD date by a number of calendar days,
// crossing month, year, and leap-year boundaries correctly.
func ComputeReviewDate(date string, horizonDays int) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("journal: parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, horizonDays).Format("2006-01-02"), nil
}

// CreateInput holds the caller-supplied fields of a new decision.
// Trimming and option/chosen-option coherence are the form layer's job;
// the repository accepts the input as given.
type CreateInput struct {
	Title           string
	Date            string // YYYY-MM-DD
	Category        string
	DecisionType    model.DecisionType
	Options         []string
	ChosenOption    string
	Reasoning       string
	ExpectedOutcome string
	Confidence      int
	Stakes          model.Stakes
	HorizonDays     int
	Tags            []string
}

// Create assigns a fresh id, derives the review date from date + horizon, and
// persists the decision.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Decision, error) {
	reviewDate, err := ComputeReviewDate(in.Date, in.HorizonDays)
	if err != nil {
		return model.Decision{}, err
	}
	d := model.Decision{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Date:            in.Date,
		Category:        normalizeCategory(in.Category),
		DecisionType:    in.DecisionType,
		Options:         in.Options,
		ChosenOption:    in.ChosenOption,
		Reasoning:       in.Reasoning,
		ExpectedOutcome: in.ExpectedOutcome,
		Confidence:      in.Confidence,
		Stakes:          in.Stakes,
		HorizonDays:     in.HorizonDays,
		ReviewDate:      reviewDate,
		Tags:            normalizeTags(in.Tags),
	}
	if err := s.db.InsertDecision(ctx, d); err != nil {
		return model.Decision{}, err
	}
	s.logger.Debug("journal: decision created", "id", d.ID, "review_date", d.ReviewDate)
	return d, nil
}

// UpdateInput is a field patch. Nil fields are left unchanged.
type UpdateInput struct {
	Title           *string
	Date            *string
	Category        *string
	DecisionType    *model.DecisionType
	Options         []string
	ChosenOption    *string
	Reasoning       *string
	ExpectedOutcome *string
	Confidence      *int
	Stakes          *model.Stakes
	HorizonDays     *int
	Tags            []string
}

// Update merges the patch into the stored decision. If the effective date or
// horizon changed, the review date is recomputed from the new values.
// Returns storage.ErrNotFound for an unknown id.
func (s *Service) Update(ctx context.Context, id string, patch UpdateInput) (model.Decision, error) {
	d, err := s.db.GetDecision(ctx, id)
	if err != nil {
		return model.Decision{}, err
	}

	prevDate, prevHorizon := d.Date, d.HorizonDays
	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.Date != nil {
		d.Date = *patch.Date
	}
	if patch.Category != nil {
		d.Category = normalizeCategory(*patch.Category)
	}
	if patch.DecisionType != nil {
		d.DecisionType = *patch.DecisionType
	}
	if patch.Options != nil {
		d.Options = patch.Options
	}
	if patch.ChosenOption != nil {
		d.ChosenOption = *patch.ChosenOption
	}
	if patch.Reasoning != nil {
		d.Reasoning = *patch.Reasoning
	}
	if patch.ExpectedOutcome != nil {
		d.ExpectedOutcome = *patch.ExpectedOutcome
	}
	if patch.Confidence != nil {
		d.Confidence = *patch.Confidence
	}
	if patch.Stakes != nil {
		d.Stakes = *patch.Stakes
	}
	if patch.HorizonDays != nil {
		d.HorizonDays = *patch.HorizonDays
	}
	if patch.Tags != nil {
		d.Tags = normalizeTags(patch.Tags)
	}

	if d.Date != prevDate || d.HorizonDays != prevHorizon {
		reviewDate, err := ComputeReviewDate(d.Date, d.HorizonDays)
		if err != nil {
			return model.Decision{}, err
		}
		d.ReviewDate = reviewDate
	}

	if err := s.db.UpdateDecision(ctx, d); err != nil {
		return model.Decision{}, err
	}
	return d, nil
}

// Delete removes a decision. Deleting an unknown id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.DeleteDecision(ctx, id)
}

// Get returns a decision or storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (model.Decision, error) {
	return s.db.GetDecision(ctx, id)
}

// ListAll returns every decision in unspecified order.
func (s *Service) ListAll(ctx context.Context) ([]model.Decision, error) {
	return s.db.ListDecisions(ctx)
}

// ReviewInput holds the outcome fields recorded at review time.
type ReviewInput struct {
	ActualOutcome   string
	Rating          int
	LessonsLearned  string
	SameChoiceAgain bool

	OutcomeMatchedExpectation model.MatchLevel
	ContributingFactors       []string
	DecisionQuality           model.Quality
}

// RecordReview transitions a decision from pending to reviewed, setting all
// review fields together. A missing actual outcome or out-of-range rating is
// rejected with ErrInvalidReview before anything is written.
func (s *Service) RecordReview(ctx context.Context, id string, in ReviewInput) (model.Decision, error) {
	if strings.TrimSpace(in.ActualOutcome) == "" || in.Rating < 1 || in.Rating > 5 {
		return model.Decision{}, ErrInvalidReview
	}
	d, err := s.db.GetDecision(ctx, id)
	if err != nil {
		return model.Decision{}, err
	}
	d.Review = &model.Review{
		ReviewedAt:                s.now().UTC(),
		ActualOutcome:             in.ActualOutcome,
		Rating:                    in.Rating,
		LessonsLearned:            in.LessonsLearned,
		SameChoiceAgain:           in.SameChoiceAgain,
		OutcomeMatchedExpectation: in.OutcomeMatchedExpectation,
		ContributingFactors:       in.ContributingFactors,
		DecisionQuality:           in.DecisionQuality,
	}
	if err := s.db.UpdateDecision(ctx, d); err != nil {
		return model.Decision{}, err
	}
	s.logger.Debug("journal: review recorded", "id", d.ID, "rating", in.Rating)
	return d, nil
}

// DueReviews returns decisions that are unreviewed with a review date on or
// before today. Due-ness uses the UTC calendar date: reviews become due at
// UTC midnight of their review date.
func (s *Service) DueReviews(ctx context.Context) ([]model.Decision, error) {
	return s.ListFiltered(ctx, Filters{NeedsReview: true}, SortReviewDate, Asc)
}

func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// normalizeTags lowercases and deduplicates, keeping first-seen order.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ── Filtering and sorting ──────────────────────────────────────────────────────

// Filters are ANDed together. Zero values mean "no filter", except Reviewed,
// which distinguishes unset (nil) from false.
type Filters struct {
	Category    string
	Stakes      model.Stakes
	Reviewed    *bool
	NeedsReview bool
	Search      string // case-insensitive substring over title, reasoning, tags
}

// SortField selects the comparator for ListFiltered.
type SortField string

const (
	SortDate       SortField = "date"
	SortConfidence SortField = "confidence"
	SortReviewDate SortField = "reviewDate"
	SortStakes     SortField = "stakes"
)

// SortOrder flips the comparator. Tie order is unspecified.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ListFiltered returns decisions matching all filters, sorted by the given
// field and order. Date-valued fields compare lexicographically, which is
// correct for zero-padded YYYY-MM-DD strings.
func (s *Service) ListFiltered(ctx context.Context, f Filters, field SortField, order SortOrder) ([]model.Decision, error) {
	decisions, err := s.db.ListDecisions(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	filtered := decisions[:0]
	for _, d := range decisions {
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if f.Stakes != "" && d.Stakes != f.Stakes {
			continue
		}
		if f.Reviewed != nil && d.Reviewed() != *f.Reviewed {
			continue
		}
		if f.NeedsReview && (d.Reviewed() || d.ReviewDate > today) {
			continue
		}
		if f.Search != "" && !matchesSearch(d, f.Search) {
			continue
		}
		filtered = append(filtered, d)
	}

	sort.Slice(filtered, func(i, j int) bool {
		cmp := compareDecisions(filtered[i], filtered[j], field)
		if order == Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return filtered, nil
}

func matchesSearch(d model.Decision, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(d.Title), term) ||
		strings.Contains(strings.ToLower(d.Reasoning), term) {
		return true
	}
	for _, t := range d.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

func compareDecisions(a, b model.Decision, field SortField) int {
	switch field {
	case SortConfidence:
		return a.Confidence - b.Confidence
	case SortReviewDate:
		return strings.Compare(a.ReviewDate, b.ReviewDate)
	case SortStakes:
		return a.Stakes.Rank() - b.Stakes.Rank()
	default: // SortDate
		return strings.Compare(a.Date, b.Date)
	}
}
