// Package backup maintains a rotating store of full decision snapshots,
// separate from the SQLite database: one JSON file per snapshot.
//
// Snapshots are taken automatically before every destructive bulk operation
// (replace-import, restore, remote sync) via WithBackup, so a bad import is
// always recoverable even though the operation itself is not transactional.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

// ErrNotFound is returned when a backup id does not exist.
var ErrNotFound = errors.New("backup: not found")

// Backup is one full snapshot of the decision collection.
type Backup struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Reason    string           `json:"reason"`
	Decisions []model.Decision `json:"decisions"`
}

// Manager owns the snapshot directory and its retention policy.
type Manager struct {
	db        *storage.DB
	dir       string
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow overrides the clock, used by tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the snapshot directory if needed. retention is the
// number of snapshots kept; inserting beyond it evicts the oldest.
func NewManager(db *storage.DB, dir string, retention int, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if retention < 1 {
		return nil, fmt.Errorf("backup: retention must be positive, got %d", retention)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("backup: create directory %s: %w", dir, err)
	}
	m := &Manager{db: db, dir: dir, retention: retention, logger: logger, now: time.Now}
	for _, fn := range opts {
		fn(m)
	}
	return m, nil
}

// Create snapshots the current full decision collection.
func (m *Manager) Create(ctx context.Context, reason string) (Backup, error) {
	decisions, err := m.db.ListDecisions(ctx)
	if err != nil {
		return Backup{}, err
	}
	if decisions == nil {
		decisions = []model.Decision{}
	}
	b := Backup{
		ID:        uuid.NewString(),
		Timestamp: m.now().UTC(),
		Reason:    reason,
		Decisions: decisions,
	}
	data, err := json.Marshal(b)
	if err != nil {
		return Backup{}, fmt.Errorf("backup: encode: %w", err)
	}
	if err := os.WriteFile(m.path(b.ID), data, 0o600); err != nil {
		return Backup{}, fmt.Errorf("backup: write: %w", err)
	}
	m.logger.Debug("backup: created", "id", b.ID, "reason", reason, "decisions", len(decisions))

	if err := m.prune(); err != nil {
		return Backup{}, err
	}
	return b, nil
}

// List returns all snapshots, most recent first.
func (m *Manager) List(ctx context.Context) ([]Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}
	var out []Backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("backup: read %s: %w", e.Name(), err)
		}
		var b Backup
		if err := json.Unmarshal(data, &b); err != nil {
			m.logger.Warn("backup: skipping unreadable snapshot", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Restore replaces the entire decision collection with a snapshot's contents
// and returns the number of decisions restored. The pre-restore state is
// itself snapshotted first, so restores are undoable. Unknown ids fail with
// ErrNotFound and mutate nothing.
func (m *Manager) Restore(ctx context.Context, id string) (int, error) {
	backups, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	var target *Backup
	for i := range backups {
		if backups[i].ID == id {
			target = &backups[i]
			break
		}
	}
	if target == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if _, err := m.Create(ctx, "Before restore"); err != nil {
		return 0, err
	}
	if err := m.db.ReplaceDecisions(ctx, target.Decisions); err != nil {
		return 0, err
	}
	m.logger.Info("backup: restored", "id", id, "decisions", len(target.Decisions))
	return len(target.Decisions), nil
}

// Delete removes a snapshot. Unknown ids are a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := os.Remove(m.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("backup: delete %s: %w", id, err)
	}
	return nil
}

// ClearAll removes every snapshot.
func (m *Manager) ClearAll(ctx context.Context) error {
	backups, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, b := range backups {
		if err := m.Delete(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// WithBackup snapshots before running a destructive operation, then
// propagates the operation's result unchanged. Import and restore call sites
// get their safety net here instead of duplicating snapshot logic.
func (m *Manager) WithBackup(ctx context.Context, reason string, op func(context.Context) error) error {
	if _, err := m.Create(ctx, reason); err != nil {
		return err
	}
	return op(ctx)
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// prune evicts the oldest snapshots beyond the retention cap.
func (m *Manager) prune() error {
	backups, err := m.List(context.Background())
	if err != nil {
		return err
	}
	for _, b := range backups[min(m.retention, len(backups)):] {
		if err := m.Delete(context.Background(), b.ID); err != nil {
			return err
		}
		m.logger.Debug("backup: evicted", "id", b.ID, "timestamp", b.Timestamp)
	}
	return nil
}
