package journal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.OpenMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger, opts...)
}

func fixedNow(date string) func() time.Time {
	t, _ := time.Parse("2006-01-02", date)
	return func() time.Time { return t }
}

func TestComputeReviewDate(t *testing.T) {
	cases := []struct {
		date    string
		horizon int
		want    string
	}{
		{"2024-06-01", 30, "2024-07-01"},
		{"2024-01-31", 30, "2024-03-01"},  // short February, leap year
		{"2023-01-31", 30, "2023-03-02"},  // short February, non-leap
		{"2024-12-15", 30, "2025-01-14"},  // year boundary
		{"2024-03-01", 365, "2025-03-01"}, // full year
		{"2024-02-28", 1, "2024-02-29"},   // leap day
	}
	for _, tc := range cases {
		got, err := ComputeReviewDate(tc.date, tc.horizon)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s + %d days", tc.date, tc.horizon)
	}
}

func TestComputeReviewDate_BadDate(t *testing.T) {
	_, err := ComputeReviewDate("not-a-date", 30)
	assert.Error(t, err)
}

func TestCreate_DerivesReviewDate(t *testing.T) {
	s := newTestService(t)

	d, err := s.Create(context.Background(), CreateInput{
		Title:       "buy the house",
		Date:        "2024-06-01",
		Category:    "Money ",
		Confidence:  60,
		Stakes:      model.StakesHigh,
		HorizonDays: 90,
		Tags:        []string{"Housing", "housing", " big "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "2024-08-30", d.ReviewDate)
	assert.Equal(t, "money", d.Category)
	// Tags are lowercased and deduplicated, keeping first-seen order.
	assert.Equal(t, []string{"housing", "big"}, d.Tags)
}

func TestUpdate_RecomputesReviewDateWhenInputsChange(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	d, err := s.Create(ctx, CreateInput{Title: "t", Date: "2024-06-01", HorizonDays: 30})
	require.NoError(t, err)
	require.Equal(t, "2024-07-01", d.ReviewDate)

	horizon := 60
	got, err := s.Update(ctx, d.ID, UpdateInput{HorizonDays: &horizon})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-31", got.ReviewDate)

	// A patch that touches neither date nor horizon leaves the review date alone.
	title := "renamed"
	got, err = s.Update(ctx, d.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-31", got.ReviewDate)
	assert.Equal(t, "renamed", got.Title)
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestService(t)

	title := "x"
	_, err := s.Update(context.Background(), "missing", UpdateInput{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_UnknownIDIsNoError(t *testing.T) {
	s := newTestService(t)
	assert.NoError(t, s.Delete(context.Background(), "missing"))
}

func TestRecordReview(t *testing.T) {
	reviewedAt := time.Date(2024, 7, 5, 14, 0, 0, 0, time.UTC)
	s := newTestService(t, WithNow(func() time.Time { return reviewedAt }))
	ctx := context.Background()

	d, err := s.Create(ctx, CreateInput{Title: "t", Date: "2024-06-01", HorizonDays: 30, Confidence: 80})
	require.NoError(t, err)

	got, err := s.RecordReview(ctx, d.ID, ReviewInput{
		ActualOutcome:   "better than expected",
		Rating:          5,
		SameChoiceAgain: true,
	})
	require.NoError(t, err)
	require.NotNil(t, got.Review)
	assert.True(t, got.Review.ReviewedAt.Equal(reviewedAt))

	// The transition persisted.
	stored, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, stored.Reviewed())
}

func TestRecordReview_RejectsInvalidInputBeforeWriting(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	d, err := s.Create(ctx, CreateInput{Title: "t", Date: "2024-06-01", HorizonDays: 30})
	require.NoError(t, err)

	cases := []ReviewInput{
		{ActualOutcome: "", Rating: 3},
		{ActualOutcome: "   ", Rating: 3},
		{ActualOutcome: "fine", Rating: 0},
		{ActualOutcome: "fine", Rating: 6},
	}
	for _, in := range cases {
		_, err := s.RecordReview(ctx, d.ID, in)
		assert.ErrorIs(t, err, ErrInvalidReview)
	}

	// Nothing was applied.
	stored, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.Reviewed())
}

func TestListFiltered_FiltersAreANDed(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	mk := func(title, category string, stakes model.Stakes, tags ...string) model.Decision {
		d, err := s.Create(ctx, CreateInput{
			Title: title, Date: "2024-06-01", Category: category,
			Stakes: stakes, HorizonDays: 30, Tags: tags,
		})
		require.NoError(t, err)
		return d
	}
	mk("quit the job", "work", model.StakesHigh, "career")
	mk("new laptop", "money", model.StakesLow)
	target := mk("ask for a raise", "work", model.StakesHigh, "career", "salary")

	_, err := s.RecordReview(ctx, target.ID, ReviewInput{ActualOutcome: "got it", Rating: 4})
	require.NoError(t, err)

	reviewed := true
	got, err := s.ListFiltered(ctx, Filters{
		Category: "work",
		Stakes:   model.StakesHigh,
		Reviewed: &reviewed,
		Search:   "raise",
	}, SortDate, Asc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, target.ID, got[0].ID)
}

func TestListFiltered_SearchCoversTitleReasoningTags(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, CreateInput{
		Title: "upgrade dev machine", Date: "2024-06-01", HorizonDays: 30,
		Reasoning: "the old one thermal throttles", Tags: []string{"hardware"},
	})
	require.NoError(t, err)

	for _, term := range []string{"UPGRADE", "throttles", "hardware"} {
		got, err := s.ListFiltered(ctx, Filters{Search: term}, SortDate, Asc)
		require.NoError(t, err)
		assert.Len(t, got, 1, "term %q", term)
	}

	got, err := s.ListFiltered(ctx, Filters{Search: "unrelated"}, SortDate, Asc)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListFiltered_Sorting(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	specs := []struct {
		date       string
		confidence int
		stakes     model.Stakes
	}{
		{"2024-03-01", 90, model.StakesLow},
		{"2024-01-01", 40, model.StakesHigh},
		{"2024-02-01", 70, model.StakesMedium},
	}
	for i, sp := range specs {
		_, err := s.Create(ctx, CreateInput{
			Title: string(rune('a' + i)), Date: sp.date,
			Confidence: sp.confidence, Stakes: sp.stakes, HorizonDays: 30,
		})
		require.NoError(t, err)
	}

	byDate, err := s.ListFiltered(ctx, Filters{}, SortDate, Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01", "2024-03-01"},
		[]string{byDate[0].Date, byDate[1].Date, byDate[2].Date})

	byConfDesc, err := s.ListFiltered(ctx, Filters{}, SortConfidence, Desc)
	require.NoError(t, err)
	assert.Equal(t, []int{90, 70, 40},
		[]int{byConfDesc[0].Confidence, byConfDesc[1].Confidence, byConfDesc[2].Confidence})

	// Stakes sort is ordinal, not lexical: low < medium < high.
	byStakes, err := s.ListFiltered(ctx, Filters{}, SortStakes, Asc)
	require.NoError(t, err)
	assert.Equal(t, []model.Stakes{model.StakesLow, model.StakesMedium, model.StakesHigh},
		[]model.Stakes{byStakes[0].Stakes, byStakes[1].Stakes, byStakes[2].Stakes})
}

func TestDueReviews(t *testing.T) {
	s := newTestService(t, WithNow(fixedNow("2024-07-01")))
	ctx := context.Background()

	due, err := s.Create(ctx, CreateInput{Title: "due", Date: "2024-06-01", HorizonDays: 30})
	require.NoError(t, err)
	dueToday, err := s.Create(ctx, CreateInput{Title: "due today", Date: "2024-06-01", HorizonDays: 30})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateInput{Title: "future", Date: "2024-06-01", HorizonDays: 60})
	require.NoError(t, err)
	reviewedDec, err := s.Create(ctx, CreateInput{Title: "done", Date: "2024-05-01", HorizonDays: 10})
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, reviewedDec.ID, ReviewInput{ActualOutcome: "ok", Rating: 3})
	require.NoError(t, err)

	got, err := s.DueReviews(ctx)
	require.NoError(t, err)
	ids := make(map[string]bool, len(got))
	for _, d := range got {
		ids[d.ID] = true
	}
	// Due on the review date itself, not only after it.
	assert.True(t, ids[due.ID])
	assert.True(t, ids[dueToday.ID])
	assert.Len(t, got, 2)
}
