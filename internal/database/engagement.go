package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecord is returned when an engagement record fails validation.
var ErrInvalidRecord = errors.New("invalid engagement record")

const engagementColumns = "id, post_id, likes, comments, shares, date, channel"

// UpsertEngagement inserts a record, or replaces the counters of an already
// observed post in the same channel. Returns the row ID.
func (db *DB) UpsertEngagement(rec EngagementRecord) (int64, error) {
	if rec.Likes < 0 || rec.Comments < 0 || rec.Shares < 0 {
		return 0, fmt.Errorf("%w: counts must be non-negative", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.PostID) == "" || strings.TrimSpace(rec.Channel) == "" {
		return 0, fmt.Errorf("%w: post_id and channel are required", ErrInvalidRecord)
	}

	date := FormatStoreTime(db.now())
	if rec.Date != "" {
		date = NormalizeDate(rec.Date)
	}

	var id int64
	err := db.conn.QueryRow(
		`INSERT INTO engagement_data (post_id, likes, comments, shares, date, channel)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, post_id) DO UPDATE SET
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			date = excluded.date
		RETURNING id`,
		rec.PostID, rec.Likes, rec.Comments, rec.Shares, date, rec.Channel,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting post %s: %w", rec.PostID, err)
	}
	return id, nil
}

// GetEngagementByPeriod returns rows from the period window ending now,
// ordered by date ascending. An empty channel matches all channels.
func (db *DB) GetEngagementByPeriod(period Period, channel string) ([]EngagementRecord, error) {
	now := db.now()
	return db.queryWindow(FormatStoreTime(period.Since(now)), FormatStoreTime(now), channel)
}

// GetEngagementByRange returns rows between two YYYY-MM-DD dates inclusive,
// ordered by date ascending. An empty channel matches all channels.
func (db *DB) GetEngagementByRange(start, end, channel string) ([]EngagementRecord, error) {
	from, to, err := ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return db.queryWindow(FormatStoreTime(from), FormatStoreTime(to), channel)
}

func (db *DB) queryWindow(from, to, channel string) ([]EngagementRecord, error) {
	// The listener writes its own timestamp formats, so bounds are compared as
	// instants. Dates SQLite cannot read fall back to text comparison and are
	// rejected later by dataset validation.
	query := "SELECT " + engagementColumns + ` FROM engagement_data
		WHERE (julianday(date) BETWEEN julianday(?) AND julianday(?)
			OR (julianday(date) IS NULL AND date BETWEEN ? AND ?))`
	args := []any{from, to, from, to}
	if channel != "" {
		query += " AND channel = ?"
		args = append(args, channel)
	}
	query += " ORDER BY julianday(date) ASC, id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying engagement: %w", err)
	}
	defer rows.Close()
	return scanEngagement(rows)
}

// GetRecentEngagement returns the most recent rows, newest first.
func (db *DB) GetRecentEngagement(limit int) ([]EngagementRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(
		"SELECT "+engagementColumns+" FROM engagement_data ORDER BY date DESC, id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent engagement: %w", err)
	}
	defer rows.Close()
	return scanEngagement(rows)
}

func scanEngagement(rows *sql.Rows) ([]EngagementRecord, error) {
	var records []EngagementRecord
	for rows.Next() {
		var r EngagementRecord
		if err := rows.Scan(&r.ID, &r.PostID, &r.Likes, &r.Comments, &r.Shares, &r.Date, &r.Channel); err != nil {
			return nil, fmt.Errorf("scanning engagement row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
