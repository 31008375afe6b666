package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

// tickingClock returns a distinct, strictly increasing time per call so
// snapshot ordering is deterministic.
func tickingClock() func() time.Time {
	t := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newTestManager(t *testing.T, retention int) (*Manager, *storage.DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.OpenMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := NewManager(db, t.TempDir(), retention, logger, WithNow(tickingClock()))
	require.NoError(t, err)
	return m, db
}

func insertDecision(t *testing.T, db *storage.DB, title string) model.Decision {
	t.Helper()
	d := model.Decision{
		ID: uuid.NewString(), Title: title, Date: "2024-06-01",
		Category: "work", Confidence: 50, Stakes: model.StakesLow,
		ReviewDate: "2024-07-01",
	}
	require.NoError(t, db.InsertDecision(context.Background(), d))
	return d
}

func TestNewManager_RejectsNonPositiveRetention(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.OpenMemory(logger)
	require.NoError(t, err)
	defer db.Close()

	_, err = NewManager(db, t.TempDir(), 0, logger)
	assert.Error(t, err)
}

func TestCreate_SnapshotsCurrentCollection(t *testing.T) {
	m, db := newTestManager(t, 5)
	ctx := context.Background()

	insertDecision(t, db, "one")
	insertDecision(t, db, "two")

	b, err := m.Create(ctx, "Manual backup")
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "Manual backup", b.Reason)
	assert.Len(t, b.Decisions, 2)
}

func TestCreate_EmptyCollection(t *testing.T) {
	m, _ := newTestManager(t, 5)

	b, err := m.Create(context.Background(), "Manual backup")
	require.NoError(t, err)
	assert.NotNil(t, b.Decisions)
	assert.Empty(t, b.Decisions)
}

func TestRetention_SixthSnapshotEvictsOldest(t *testing.T) {
	m, _ := newTestManager(t, 5)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		b, err := m.Create(ctx, "Manual backup")
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	backups, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 5)

	// Newest first, and the first snapshot is gone.
	assert.Equal(t, ids[5], backups[0].ID)
	for _, b := range backups {
		assert.NotEqual(t, ids[0], b.ID)
	}
}

func TestList_NewestFirst(t *testing.T) {
	m, _ := newTestManager(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx, "Manual backup")
		require.NoError(t, err)
	}

	backups, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
	assert.True(t, backups[1].Timestamp.After(backups[2].Timestamp))
}

func TestRestore_ReplacesCollection(t *testing.T) {
	m, db := newTestManager(t, 5)
	ctx := context.Background()

	insertDecision(t, db, "original")
	b, err := m.Create(ctx, "Manual backup")
	require.NoError(t, err)

	// Diverge from the snapshot.
	insertDecision(t, db, "added later")

	count, err := m.Restore(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := db.ListDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "original", all[0].Title)
}

func TestRestore_TakesPreRestoreSnapshot(t *testing.T) {
	m, db := newTestManager(t, 5)
	ctx := context.Background()

	insertDecision(t, db, "original")
	b, err := m.Create(ctx, "Manual backup")
	require.NoError(t, err)

	insertDecision(t, db, "added later")
	_, err = m.Restore(ctx, b.ID)
	require.NoError(t, err)

	backups, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "Before restore", backups[0].Reason)
	// The pre-restore snapshot holds the state being replaced.
	assert.Len(t, backups[0].Decisions, 2)
}

func TestRestore_UnknownIDMutatesNothing(t *testing.T) {
	m, db := newTestManager(t, 5)
	ctx := context.Background()

	insertDecision(t, db, "keep me")

	_, err := m.Restore(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := db.ListDecisions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	backups, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups, "no pre-restore snapshot for a failed restore")
}

func TestDelete_UnknownIDIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, 5)
	assert.NoError(t, m.Delete(context.Background(), "missing"))
}

func TestClearAll(t *testing.T) {
	m, _ := newTestManager(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx, "Manual backup")
		require.NoError(t, err)
	}
	require.NoError(t, m.ClearAll(ctx))

	backups, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestWithBackup_SnapshotsBeforeRunning(t *testing.T) {
	m, db := newTestManager(t, 5)
	ctx := context.Background()

	insertDecision(t, db, "before")

	err := m.WithBackup(ctx, "Before import", func(ctx context.Context) error {
		return db.ReplaceDecisions(ctx, nil)
	})
	require.NoError(t, err)

	backups, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "Before import", backups[0].Reason)
	assert.Len(t, backups[0].Decisions, 1)
}

func TestWithBackup_PropagatesOperationError(t *testing.T) {
	m, _ := newTestManager(t, 5)

	opErr := errors.New("boom")
	err := m.WithBackup(context.Background(), "Before import", func(context.Context) error {
		return opErr
	})
	assert.ErrorIs(t, err, opErr)
}
