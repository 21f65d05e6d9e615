package database

import (
	"database/sql"
	"fmt"
)

// InsertRun records a report generation attempt.
func (db *DB) InsertRun(run RunRecord) error {
	generatedAt := FormatStoreTime(db.now())
	if run.GeneratedAt != nil {
		generatedAt = *run.GeneratedAt
	}
	_, err := db.conn.Exec(
		`INSERT INTO report_runs (id, kind, label, path, row_count, status, error, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Label, run.Path, run.RowCount, run.Status, run.Error, generatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a run by ID, or nil if it does not exist.
func (db *DB) GetRun(id string) (*RunRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, kind, label, path, row_count, status, error, generated_at
		FROM report_runs WHERE id = ?`, id,
	)

	var r RunRecord
	var path sql.NullString
	if err := row.Scan(&r.ID, &r.Kind, &r.Label, &path, &r.RowCount, &r.Status, &r.Error, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.Path = path.String
	return &r, nil
}

// GetRecentRuns returns the latest runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT id, kind, label, path, row_count, status, error, generated_at
		FROM report_runs ORDER BY generated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var path sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.Label, &path, &r.RowCount, &r.Status, &r.Error, &r.GeneratedAt); err != nil {
			return nil, err
		}
		r.Path = path.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	counts := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM engagement_data", &s.TotalRecords},
		{"SELECT COUNT(DISTINCT channel) FROM engagement_data", &s.Channels},
		{"SELECT COUNT(*) FROM report_runs", &s.ReportRuns},
		{"SELECT COUNT(*) FROM report_runs WHERE status = 'failed'", &s.FailedRuns},
	}
	for _, q := range counts {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow(
		"SELECT MIN(date), MAX(date) FROM engagement_data",
	).Scan(&s.FirstDate, &s.LastDate); err != nil {
		return nil, err
	}

	return s, nil
}
