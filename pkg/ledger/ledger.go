// Package ledger keeps an optional Postgres history of sessions and pipeline
// runs. When no ledger is configured the daemon runs without it; artifacts on
// disk remain the source of truth, the ledger is for querying history.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luminahq/lumina/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id    TEXT PRIMARY KEY,
    meeting_id    TEXT NOT NULL,
    meeting_title TEXT NOT NULL DEFAULT '',
    outcome       TEXT NOT NULL,
    error_code    TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    recording_ref TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS sessions_meeting_idx ON sessions (meeting_id);
CREATE INDEX IF NOT EXISTS sessions_started_idx ON sessions (started_at DESC);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id           TEXT PRIMARY KEY,
    meeting_id       TEXT NOT NULL,
    stages_attempted TEXT[] NOT NULL DEFAULT '{}',
    stages_succeeded TEXT[] NOT NULL DEFAULT '{}',
    transcript_ref   TEXT NOT NULL DEFAULT '',
    minutes_ref      TEXT NOT NULL DEFAULT '',
    notified         BOOLEAN NOT NULL DEFAULT FALSE,
    error_code       TEXT NOT NULL DEFAULT '',
    started_at       TIMESTAMPTZ NOT NULL,
    ended_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS pipeline_runs_meeting_idx ON pipeline_runs (meeting_id);
`

// SessionRecord is one finished session row.
type SessionRecord struct {
	SessionID    string
	MeetingID    string
	MeetingTitle string
	Outcome      string
	ErrorCode    string
	StartedAt    time.Time
	EndedAt      time.Time
	RecordingRef string
}

// RunRecord is one finished pipeline run row.
type RunRecord struct {
	RunID           string
	MeetingID       string
	StagesAttempted []string
	StagesSucceeded []string
	TranscriptRef   string
	MinutesRef      string
	Notified        bool
	ErrorCode       string
	StartedAt       time.Time
	EndedAt         time.Time
}

// Ledger wraps a pgx pool with the session-history queries.
type Ledger struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// Connect opens the pool, verifies it, and ensures the schema exists.
func Connect(ctx context.Context, connString string, logger logging.Logger) (*Ledger, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger connection string: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating ledger pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging ledger database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring ledger schema: %w", err)
	}

	logger.Info("session ledger connected")
	return &Ledger{pool: pool, logger: logger}, nil
}

// RecordSession inserts a finished session. Re-recording the same session ID
// overwrites the previous row.
func (l *Ledger) RecordSession(ctx context.Context, rec SessionRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO sessions
			(session_id, meeting_id, meeting_title, outcome, error_code,
			 started_at, ended_at, recording_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			error_code = EXCLUDED.error_code,
			ended_at = EXCLUDED.ended_at,
			recording_ref = EXCLUDED.recording_ref`,
		rec.SessionID, rec.MeetingID, rec.MeetingTitle, rec.Outcome,
		rec.ErrorCode, rec.StartedAt, rec.EndedAt, rec.RecordingRef)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

// RecordRun inserts a finished pipeline run.
func (l *Ledger) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO pipeline_runs
			(run_id, meeting_id, stages_attempted, stages_succeeded,
			 transcript_ref, minutes_ref, notified, error_code,
			 started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.RunID, rec.MeetingID, rec.StagesAttempted, rec.StagesSucceeded,
		rec.TranscriptRef, rec.MinutesRef, rec.Notified, rec.ErrorCode,
		rec.StartedAt, rec.EndedAt)
	if err != nil {
		return fmt.Errorf("recording pipeline run: %w", err)
	}
	return nil
}

// RecentSessions returns the most recent sessions, newest first.
func (l *Ledger) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx, `
		SELECT session_id, meeting_id, meeting_title, outcome, error_code,
		       started_at, ended_at, recording_ref
		FROM sessions
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.SessionID, &rec.MeetingID, &rec.MeetingTitle,
			&rec.Outcome, &rec.ErrorCode, &rec.StartedAt, &rec.EndedAt,
			&rec.RecordingRef); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Health pings the database.
func (l *Ledger) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return l.pool.Ping(ctx)
}

// Close releases the pool.
func (l *Ledger) Close() {
	if l != nil && l.pool != nil {
		l.pool.Close()
	}
}
