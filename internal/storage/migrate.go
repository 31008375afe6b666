package storage

import "fmt"

type migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations are additive only: introducing optional fields must never require
// rewriting existing rows.
var migrations = []migration{
	{
		Version:     1,
		Description: "decisions: journal entries with review state",
		SQL: `
CREATE TABLE decisions (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    date              TEXT NOT NULL,
    category          TEXT NOT NULL,
    decision_type     TEXT NOT NULL,
    options           TEXT NOT NULL,
    chosen_option     TEXT NOT NULL,
    reasoning         TEXT NOT NULL DEFAULT '',
    expected_outcome  TEXT NOT NULL DEFAULT '',
    confidence        INTEGER NOT NULL,
    stakes            TEXT NOT NULL,
    horizon_days      INTEGER NOT NULL,
    review_date       TEXT NOT NULL,
    tags              TEXT NOT NULL,

    -- Review state: reviewed_at NULL means pending.
    reviewed_at       TEXT,
    actual_outcome    TEXT,
    rating            INTEGER,
    lessons_learned   TEXT,
    same_choice_again INTEGER,
    outcome_matched   TEXT,
    factors           TEXT,
    decision_quality  TEXT
);

CREATE INDEX idx_decisions_date        ON decisions(date);
CREATE INDEX idx_decisions_category    ON decisions(category);
CREATE INDEX idx_decisions_stakes      ON decisions(stakes);
CREATE INDEX idx_decisions_review_date ON decisions(review_date);
CREATE INDEX idx_decisions_reviewed_at ON decisions(reviewed_at);
`,
	},
	{
		Version:     2,
		Description: "categories: user-defined category names",
		SQL: `
CREATE TABLE categories (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);

CREATE INDEX idx_categories_name ON categories(name);
`,
	},
	{
		Version:     3,
		Description: "settings: fixed-key records (sync credential, gist id)",
		SQL: `
CREATE TABLE settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
		db.logger.Debug("storage: migration applied", "version", m.Version, "description", m.Description)
	}
	return nil
}
