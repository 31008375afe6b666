package categories

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.OpenMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger), db
}

func insertDecision(t *testing.T, db *storage.DB, category string) model.Decision {
	t.Helper()
	d := model.Decision{
		ID:         uuid.NewString(),
		Title:      "in " + category,
		Date:       "2024-06-01",
		Category:   category,
		Confidence: 50,
		Stakes:     model.StakesLow,
		ReviewDate: "2024-07-01",
	}
	require.NoError(t, db.InsertDecision(context.Background(), d))
	return d
}

func TestAdd_NormalizesName(t *testing.T) {
	s, _ := newTestService(t)

	c, err := s.Add(context.Background(), "  Side Projects  ")
	require.NoError(t, err)
	assert.Equal(t, "side projects", c.Name)
	assert.NotEmpty(t, c.ID)
}

func TestAdd_RejectsCollisions(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	// Default category names are reserved.
	_, err := s.Add(ctx, "Work")
	assert.ErrorIs(t, err, ErrExists)

	// So are names of other custom categories.
	_, err = s.Add(ctx, "travel")
	require.NoError(t, err)
	_, err = s.Add(ctx, "TRAVEL")
	assert.ErrorIs(t, err, ErrExists)

	// And names only present on decisions.
	insertDecision(t, db, "gardening")
	_, err = s.Add(ctx, "gardening")
	assert.ErrorIs(t, err, ErrExists)
}

func TestAdd_EmptyName(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Add(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestDelete_RefusedWhileInUse(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	c, err := s.Add(ctx, "travel")
	require.NoError(t, err)
	insertDecision(t, db, "travel")

	assert.ErrorIs(t, s.Delete(ctx, c.ID), ErrInUse)

	// Once no decision uses it, deletion goes through.
	require.NoError(t, db.ReplaceDecisions(ctx, nil))
	assert.NoError(t, s.Delete(ctx, c.ID))
}

func TestDelete_UnknownID(t *testing.T) {
	s, _ := newTestService(t)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), storage.ErrNotFound)
}

func TestRename_PropagatesToDecisions(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	insertDecision(t, db, "work")
	insertDecision(t, db, "work")
	insertDecision(t, db, "money")

	n, err := s.Rename(ctx, "work", "career")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := db.CountDecisionsInCategory(ctx, "career")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRename_UpdatesCustomCategoryRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "travel")
	require.NoError(t, err)

	_, err = s.Rename(ctx, "travel", "trips")
	require.NoError(t, err)

	custom, err := s.Custom(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "trips", custom[0].Name)
}

func TestMerge(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	insertDecision(t, db, "money")
	insertDecision(t, db, "fun")
	insertDecision(t, db, "work")

	n, err := s.Merge(ctx, []string{"money", "fun"}, "life")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := db.CountDecisionsInCategory(ctx, "life")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAll_UnionIsDeduplicatedAndSorted(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "travel")
	require.NoError(t, err)
	insertDecision(t, db, "work")      // already a default
	insertDecision(t, db, "gardening") // only on decisions

	all, err := s.All(ctx)
	require.NoError(t, err)

	assert.Contains(t, all, "travel")
	assert.Contains(t, all, "gardening")
	for _, def := range model.DefaultCategories {
		assert.Contains(t, all, def)
	}
	// No duplicates and sorted ascending.
	seen := map[string]bool{}
	for i, name := range all {
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
		if i > 0 {
			assert.Less(t, all[i-1], name)
		}
	}
}
