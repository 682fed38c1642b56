package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// JobRecord is one row of the job history: a point-in-time snapshot
// written when a job reaches a terminal state. The Redis session stays
// the source of truth for live state; this table only survives it.
type JobRecord struct {
	SessionID       string    `json:"session_id"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	SourceLanguage  string    `json:"source_language"`
	TargetLanguage  string    `json:"target_language"`
	Status          string    `json:"status"`
	TranscriptChars int       `json:"transcript_chars"`
	CreatedAt       time.Time `json:"created_at"`
}

// History is the SQLite-backed job history.
type History struct {
	db *sql.DB
}

// NewHistory opens (creating if needed) the history database.
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		title TEXT,
		source_language TEXT,
		target_language TEXT,
		status TEXT NOT NULL,
		transcript_chars INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_session_id ON jobs(session_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &History{db: db}, nil
}

// Record appends one job snapshot.
func (h *History) Record(rec JobRecord) error {
	query := `
	INSERT INTO jobs (session_id, video_id, title, source_language, target_language, status, transcript_chars, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := h.db.Exec(query, rec.SessionID, rec.VideoID, rec.Title,
		rec.SourceLanguage, rec.TargetLanguage, rec.Status, rec.TranscriptChars, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record job: %v", err)
	}
	return nil
}

// List returns the most recent jobs, newest first.
func (h *History) List(limit int) ([]JobRecord, error) {
	query := `
	SELECT session_id, video_id, title, source_language, target_language, status, transcript_chars, created_at
	FROM jobs ORDER BY created_at DESC LIMIT ?
	`

	rows, err := h.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %v", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.SessionID, &rec.VideoID, &rec.Title,
			&rec.SourceLanguage, &rec.TargetLanguage, &rec.Status,
			&rec.TranscriptChars, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}
