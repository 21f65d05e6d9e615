package database

import (
	"database/sql"
	"fmt"
)

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "engagement table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS engagement_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id TEXT NOT NULL UNIQUE,
    likes INTEGER DEFAULT 0 CHECK(likes >= 0),
    comments INTEGER DEFAULT 0 CHECK(comments >= 0),
    shares INTEGER DEFAULT 0 CHECK(shares >= 0),
    date TEXT NOT NULL,
    channel TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "report runs ledger",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS report_runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    label TEXT NOT NULL,
    path TEXT,
    row_count INTEGER DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('succeeded', 'failed')),
    error TEXT,
    generated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_report_runs_generated ON report_runs(generated_at);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "post uniqueness per channel",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE engagement_data_v3 (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id TEXT NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0 CHECK(likes >= 0),
    comments INTEGER NOT NULL DEFAULT 0 CHECK(comments >= 0),
    shares INTEGER NOT NULL DEFAULT 0 CHECK(shares >= 0),
    date TEXT NOT NULL,
    channel TEXT NOT NULL,
    UNIQUE(channel, post_id)
);

INSERT INTO engagement_data_v3 (id, post_id, likes, comments, shares, date, channel)
SELECT id, post_id, COALESCE(likes, 0), COALESCE(comments, 0), COALESCE(shares, 0), date, channel
FROM engagement_data;

DROP TABLE engagement_data;
ALTER TABLE engagement_data_v3 RENAME TO engagement_data;

CREATE INDEX IF NOT EXISTS idx_engagement_date ON engagement_data(date);
CREATE INDEX IF NOT EXISTS idx_engagement_channel ON engagement_data(channel);
`)
			return err
		},
	},
	{
		Version:     4,
		Description: "normalise engagement dates",
		Up:          normalizeEngagementDates,
	},
}

// normalizeEngagementDates rewrites adopted rows into StoreLayout. Rows whose
// date cannot be parsed are left as they are.
func normalizeEngagementDates(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT id, date FROM engagement_data")
	if err != nil {
		return fmt.Errorf("reading dates: %w", err)
	}
	updates := map[int64]string{}
	for rows.Next() {
		var id int64
		var date string
		if err := rows.Scan(&id, &date); err != nil {
			rows.Close()
			return fmt.Errorf("scanning date: %w", err)
		}
		if norm := NormalizeDate(date); norm != date {
			updates[id] = norm
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, date := range updates {
		if _, err := tx.Exec("UPDATE engagement_data SET date = ? WHERE id = ?", date, id); err != nil {
			return fmt.Errorf("normalising row %d: %w", id, err)
		}
	}
	return nil
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
