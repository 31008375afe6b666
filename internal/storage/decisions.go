package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashita-ai/kiroku/internal/model"
)

const decisionColumns = `id, title, date, category, decision_type, options, chosen_option,
	reasoning, expected_outcome, confidence, stakes, horizon_days, review_date, tags,
	reviewed_at, actual_outcome, rating, lessons_learned, same_choice_again,
	outcome_matched, factors, decision_quality`

const decisionPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// InsertDecision stores a new decision row.
func (db *DB) InsertDecision(ctx context.Context, d model.Decision) error {
	args, err := decisionArgs(d)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO decisions (`+decisionColumns+`) VALUES (`+decisionPlaceholders+`)`,
		args...); err != nil {
		return fmt.Errorf("storage: insert decision: %w", err)
	}
	return nil
}

// UpdateDecision overwrites the full row for d.ID.
// Returns ErrNotFound if no such decision exists.
func (db *DB) UpdateDecision(ctx context.Context, d model.Decision) error {
	args, err := decisionArgs(d)
	if err != nil {
		return err
	}
	// Shift id to the WHERE clause.
	args = append(args[1:], d.ID)
	res, err := db.ExecContext(ctx, `UPDATE decisions SET
		title = ?, date = ?, category = ?, decision_type = ?, options = ?, chosen_option = ?,
		reasoning = ?, expected_outcome = ?, confidence = ?, stakes = ?, horizon_days = ?,
		review_date = ?, tags = ?, reviewed_at = ?, actual_outcome = ?, rating = ?,
		lessons_learned = ?, same_choice_again = ?, outcome_matched = ?, factors = ?,
		decision_quality = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("storage: update decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update decision: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDecision removes a decision. Deleting an unknown id is a no-op.
func (db *DB) DeleteDecision(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM decisions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage: delete decision: %w", err)
	}
	return nil
}

// GetDecision returns the decision with the given id, or ErrNotFound.
func (db *DB) GetDecision(ctx context.Context, id string) (model.Decision, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return model.Decision{}, ErrNotFound
	}
	if err != nil {
		return model.Decision{}, fmt.Errorf("storage: get decision: %w", err)
	}
	return d, nil
}

// ListDecisions returns every decision. Order is unspecified; callers sort.
func (db *DB) ListDecisions(ctx context.Context) ([]model.Decision, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+decisionColumns+` FROM decisions`)
	if err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list decisions: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	return out, nil
}

// ReplaceDecisions atomically replaces the entire collection.
func (db *DB) ReplaceDecisions(ctx context.Context, decisions []model.Decision) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: replace decisions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM decisions`); err != nil {
		return fmt.Errorf("storage: replace decisions: clear: %w", err)
	}
	for _, d := range decisions {
		args, err := decisionArgs(d)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decisions (`+decisionColumns+`) VALUES (`+decisionPlaceholders+`)`,
			args...); err != nil {
			return fmt.Errorf("storage: replace decisions: insert %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: replace decisions: %w", err)
	}
	return nil
}

// InsertMissingDecisions inserts only those decisions whose id is not already
// present, and reports how many were inserted. Existing rows are never touched.
func (db *DB) InsertMissingDecisions(ctx context.Context, decisions []model.Decision) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: insert missing decisions: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, d := range decisions {
		args, err := decisionArgs(d)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO decisions (`+decisionColumns+`) VALUES (`+decisionPlaceholders+`)`,
			args...)
		if err != nil {
			return 0, fmt.Errorf("storage: insert missing decisions: %s: %w", d.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("storage: insert missing decisions: %w", err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: insert missing decisions: %w", err)
	}
	return inserted, nil
}

// UsedCategories returns the distinct category names currently used by decisions.
func (db *DB) UsedCategories(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM decisions ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("storage: used categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("storage: used categories: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CountDecisionsInCategory reports how many decisions use a category name.
func (db *DB) CountDecisionsInCategory(ctx context.Context, name string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decisions WHERE category = ?`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count category: %w", err)
	}
	return n, nil
}

// RenameDecisionCategory moves every decision from one category name to
// another and returns the number of decisions updated.
func (db *DB) RenameDecisionCategory(ctx context.Context, from, to string) (int, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE decisions SET category = ? WHERE category = ?`, to, from)
	if err != nil {
		return 0, fmt.Errorf("storage: rename category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: rename category: %w", err)
	}
	return int(n), nil
}

// MergeDecisionCategories moves every decision in the source categories to the
// target and returns the number of decisions updated.
func (db *DB) MergeDecisionCategories(ctx context.Context, sources []string, target string) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?, ", len(sources)-1) + "?"
	args := make([]any, 0, len(sources)+1)
	args = append(args, target)
	for _, s := range sources {
		args = append(args, s)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE decisions SET category = ? WHERE category IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("storage: merge categories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: merge categories: %w", err)
	}
	return int(n), nil
}

// ── Row mapping ────────────────────────────────────────────────────────────────

func decisionArgs(d model.Decision) ([]any, error) {
	options, err := json.Marshal(emptyIfNil(d.Options))
	if err != nil {
		return nil, fmt.Errorf("storage: encode options: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(d.Tags))
	if err != nil {
		return nil, fmt.Errorf("storage: encode tags: %w", err)
	}

	var (
		reviewedAt, actualOutcome, lessons, matched, quality sql.NullString
		rating, sameChoice                                   sql.NullInt64
		factors                                              sql.NullString
	)
	if r := d.Review; r != nil {
		reviewedAt = sql.NullString{String: r.ReviewedAt.UTC().Format(time.RFC3339Nano), Valid: true}
		actualOutcome = sql.NullString{String: r.ActualOutcome, Valid: true}
		lessons = sql.NullString{String: r.LessonsLearned, Valid: true}
		sameChoice = sql.NullInt64{Int64: boolToInt(r.SameChoiceAgain), Valid: true}
		if r.Rating >= 1 {
			rating = sql.NullInt64{Int64: int64(r.Rating), Valid: true}
		}
		if r.OutcomeMatchedExpectation != "" {
			matched = sql.NullString{String: string(r.OutcomeMatchedExpectation), Valid: true}
		}
		if len(r.ContributingFactors) > 0 {
			enc, err := json.Marshal(r.ContributingFactors)
			if err != nil {
				return nil, fmt.Errorf("storage: encode factors: %w", err)
			}
			factors = sql.NullString{String: string(enc), Valid: true}
		}
		if r.DecisionQuality != "" {
			quality = sql.NullString{String: string(r.DecisionQuality), Valid: true}
		}
	}

	return []any{
		d.ID, d.Title, d.Date, d.Category, string(d.DecisionType), string(options),
		d.ChosenOption, d.Reasoning, d.ExpectedOutcome, d.Confidence, string(d.Stakes),
		d.HorizonDays, d.ReviewDate, string(tags),
		reviewedAt, actualOutcome, rating, lessons, sameChoice, matched, factors, quality,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (model.Decision, error) {
	var (
		d                                                    model.Decision
		decisionType, stakes, options, tags                  string
		reviewedAt, actualOutcome, lessons, matched, quality sql.NullString
		rating, sameChoice                                   sql.NullInt64
		factors                                              sql.NullString
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Date, &d.Category, &decisionType, &options, &d.ChosenOption,
		&d.Reasoning, &d.ExpectedOutcome, &d.Confidence, &stakes, &d.HorizonDays,
		&d.ReviewDate, &tags,
		&reviewedAt, &actualOutcome, &rating, &lessons, &sameChoice, &matched, &factors, &quality,
	)
	if err != nil {
		return model.Decision{}, err
	}
	d.DecisionType = model.DecisionType(decisionType)
	d.Stakes = model.Stakes(stakes)
	if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
		return model.Decision{}, fmt.Errorf("decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return model.Decision{}, fmt.Errorf("decode tags: %w", err)
	}

	if reviewedAt.Valid {
		at, err := time.Parse(time.RFC3339Nano, reviewedAt.String)
		if err != nil {
			return model.Decision{}, fmt.Errorf("decode reviewed_at: %w", err)
		}
		r := &model.Review{
			ReviewedAt:      at,
			ActualOutcome:   actualOutcome.String,
			Rating:          int(rating.Int64),
			LessonsLearned:  lessons.String,
			SameChoiceAgain: sameChoice.Int64 != 0,
		}
		if matched.Valid {
			r.OutcomeMatchedExpectation = model.MatchLevel(matched.String)
		}
		if factors.Valid {
			if err := json.Unmarshal([]byte(factors.String), &r.ContributingFactors); err != nil {
				return model.Decision{}, fmt.Errorf("decode factors: %w", err)
			}
		}
		if quality.Valid {
			r.DecisionQuality = model.Quality(quality.String)
		}
		d.Review = r
	}
	return d, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
