// Package categories manages user-defined decision categories: create,
// delete, rename, and merge, with rename/merge propagated across decisions.
package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/storage"
)

var (
	// ErrExists is returned when adding a category whose name is taken.
	ErrExists = errors.New("categories: name already exists")
	// ErrInUse is returned when deleting a category still used by decisions.
	ErrInUse = errors.New("categories: still used by decisions")
	// ErrEmptyName is returned when a name trims to nothing.
	ErrEmptyName = errors.New("categories: name is empty")
)

// Service is the category manager.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a category manager over the given store.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Add creates a custom category. Names are lowercased and trimmed, and must
// not collide with defaults, other custom categories, or names already in use
// by decisions.
func (s *Service) Add(ctx context.Context, name string) (model.CustomCategory, error) {
	name = normalize(name)
	if name == "" {
		return model.CustomCategory{}, ErrEmptyName
	}
	all, err := s.All(ctx)
	if err != nil {
		return model.CustomCategory{}, err
	}
	for _, existing := range all {
		if existing == name {
			return model.CustomCategory{}, fmt.Errorf("%w: %q", ErrExists, name)
		}
	}
	c := model.CustomCategory{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.InsertCategory(ctx, c); err != nil {
		return model.CustomCategory{}, err
	}
	return c, nil
}

// Delete removes a custom category by id. Refused while any decision still
// uses the name.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.db.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.db.CountDecisionsInCategory(ctx, c.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %q has %d decisions", ErrInUse, c.Name, n)
	}
	return s.db.DeleteCategory(ctx, id)
}

// Rename moves every decision from one category name to another, updates a
// matching custom category row if one exists, and returns the number of
// decisions updated.
func (s *Service) Rename(ctx context.Context, from, to string) (int, error) {
	to = normalize(to)
	if to == "" {
		return 0, ErrEmptyName
	}
	n, err := s.db.RenameDecisionCategory(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if err := s.db.RenameCategoryRow(ctx, from, to); err != nil {
		return 0, err
	}
	s.logger.Debug("categories: renamed", "from", from, "to", to, "decisions", n)
	return n, nil
}

// Merge moves every decision in the source categories into the target and
// returns the number of decisions updated.
func (s *Service) Merge(ctx context.Context, sources []string, target string) (int, error) {
	target = normalize(target)
	if target == "" {
		return 0, ErrEmptyName
	}
	n, err := s.db.MergeDecisionCategories(ctx, sources, target)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("categories: merged", "sources", sources, "target", target, "decisions", n)
	return n, nil
}

// Custom returns all user-defined categories.
func (s *Service) Custom(ctx context.Context) ([]model.CustomCategory, error) {
	return s.db.ListCategories(ctx)
}

// Used returns the distinct category names currently used by decisions.
func (s *Service) Used(ctx context.Context) ([]string, error) {
	return s.db.UsedCategories(ctx)
}

// All returns the union of default, custom, and in-use category names, sorted.
// Custom and in-use names load concurrently.
func (s *Service) All(ctx context.Context) ([]string, error) {
	var (
		custom []model.CustomCategory
		used   []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		custom, err = s.db.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		used, err = s.db.UsedCategories(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			all = append(all, name)
		}
	}
	for _, name := range model.DefaultCategories {
		add(name)
	}
	for _, c := range custom {
		add(c.Name)
	}
	for _, name := range used {
		add(name)
	}
	sort.Strings(all)
	return all, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
