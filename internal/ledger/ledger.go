// Package ledger keeps a local SQLite record of runs and the transfers they made.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"canvas-drive-sync/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	backend        TEXT NOT NULL,
	course_ids     TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	finished_at    TEXT,
	total          INTEGER NOT NULL DEFAULT 0,
	uploaded       INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	failed         INTEGER NOT NULL DEFAULT 0,
	failed_courses TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS transfers (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	course_id       INTEGER NOT NULL,
	module_name     TEXT NOT NULL,
	title           TEXT NOT NULL,
	canvas_file_id  INTEGER NOT NULL,
	filename        TEXT NOT NULL,
	size            INTEGER NOT NULL,
	destination_id  TEXT NOT NULL,
	destination_url TEXT NOT NULL,
	status          TEXT NOT NULL CHECK(status IN ('uploaded', 'skipped', 'failed')),
	error           TEXT NOT NULL,
	recorded_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_run_id ON transfers(run_id);
`

// Ledger records runs. It satisfies sync.Recorder.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one recorded transfer.
type Entry struct {
	RunID      string
	RecordedAt time.Time
	Result     domain.TransferResult
}

// Run is one recorded run.
type Run struct {
	ID         string
	Backend    string
	CourseIDs  []int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    domain.Summary
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create tables: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) StartRun(ctx context.Context, runID string, backend string, courseIDs []int64) error {
	ids, err := json.Marshal(courseIDs)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO runs (id, backend, course_ids, started_at) VALUES (?, ?, ?, ?)`,
		runID, backend, string(ids), l.timestamp())
	if err != nil {
		return fmt.Errorf("ledger: start run %s: %w", runID, err)
	}
	return nil
}

func (l *Ledger) RecordTransfer(ctx context.Context, runID string, r domain.TransferResult) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO transfers (
		run_id, course_id, module_name, title, canvas_file_id, filename, size,
		destination_id, destination_url, status, error, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.CourseID, r.ModuleName, r.Title, r.CanvasFileID, r.Filename, r.Size,
		r.DestinationID, r.DestinationURL, r.Status, r.Error, l.timestamp())
	if err != nil {
		return fmt.Errorf("ledger: record %q: %w", r.Filename, err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, s domain.Summary) error {
	failedCourses, err := json.Marshal(nonNil(s.FailedCourses))
	if err != nil {
		return err
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, uploaded = ?, skipped = ?, failed = ?, failed_courses = ?
	 WHERE id = ?`,
		l.timestamp(), s.Total, s.Uploaded, s.Skipped, s.Failed, string(failedCourses), runID)
	if err != nil {
		return fmt.Errorf("ledger: finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger: finish run %s: no such run", runID)
	}
	return nil
}

// History returns the most recent transfers, newest first.
func (l *Ledger) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, course_id, module_name, title, canvas_file_id, filename, size,
		destination_id, destination_url, status, error, recorded_at
	 FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var recordedAt string
		r := &e.Result
		if err := rows.Scan(&e.RunID, &r.CourseID, &r.ModuleName, &r.Title, &r.CanvasFileID, &r.Filename, &r.Size,
			&r.DestinationID, &r.DestinationURL, &r.Status, &r.Error, &recordedAt); err != nil {
			return nil, fmt.Errorf("ledger: history: %w", err)
		}
		r.UploadSuccess = r.Status != domain.StatusFailed
		r.DuplicateSkipped = r.Status == domain.StatusSkipped
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetRun returns a run by id, or nil when it is unknown.
func (l *Ledger) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run                      Run
		courseIDs, failedCourses string
		startedAt                string
		finishedAt               sql.NullString
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, backend, course_ids, started_at, finished_at, total, uploaded, skipped, failed, failed_courses
	 FROM runs WHERE id = ?`, runID).Scan(
		&run.ID, &run.Backend, &courseIDs, &startedAt, &finishedAt,
		&run.Summary.Total, &run.Summary.Uploaded, &run.Summary.Skipped, &run.Summary.Failed, &failedCourses)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get run %s: %w", runID, err)
	}

	if err := json.Unmarshal([]byte(courseIDs), &run.CourseIDs); err != nil {
		return nil, fmt.Errorf("ledger: run %s course ids: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(failedCourses), &run.Summary.FailedCourses); err != nil {
		return nil, fmt.Errorf("ledger: run %s failed courses: %w", runID, err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
