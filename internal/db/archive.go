package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newhook/remedy/internal/logentry"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Session is one run of a console against a log source.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	EndedAt   *time.Time
	Records   int
}

// Record is an archived console record.
type Record struct {
	SessionID string
	Hash      uint64
	Severity  logentry.Severity
	Mode      logentry.Mode
	Condition string
	File      string
	Line      int
	Code      string
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

// StartSession creates a session for source.
func (db *DB) StartSession(ctx context.Context, source string, now time.Time) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: fromMillis(toMillis(now)),
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)",
		s.ID, s.Source, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return s, nil
}

// EndSession marks a session finished.
func (db *DB) EndSession(ctx context.Context, id string, now time.Time) error {
	res, err := db.ExecContext(ctx, "UPDATE sessions SET ended_at = ? WHERE id = ?", toMillis(now), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// SaveRecord inserts rec or updates its count and last-seen time.
func (db *DB) SaveRecord(ctx context.Context, sessionID string, rec *logentry.Record) error {
	seen := rec.Time()
	if seen.IsZero() {
		seen = time.Now()
	}

	var file string
	var line int
	if files := rec.Files(); len(files) > 0 {
		file, line = files[0].Path, files[0].Line
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO records (session_id, hash, severity, mode, condition, file, line, code, count, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, hash) DO UPDATE SET
			count = excluded.count,
			last_seen = excluded.last_seen`,
		sessionID, int64(rec.Hash()), rec.Severity().String(), int64(rec.Mode()), rec.Condition(),
		file, line, rec.Code(), rec.Count(), toMillis(seen), toMillis(seen))
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

const sessionColumns = `
	SELECT s.id, s.source, s.started_at, s.ended_at, COUNT(r.hash)
	FROM sessions s LEFT JOIN records r ON r.session_id = s.id`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Source, &started, &ended, &s.Records); err != nil {
		return nil, err
	}
	s.StartedAt = fromMillis(started)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		s.EndedAt = &t
	}
	return &s, nil
}

// Sessions returns the most recent sessions first. limit <= 0 returns all.
func (db *DB) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, sessionColumns+`
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetSession returns one session by ID.
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	row := db.QueryRowContext(ctx, sessionColumns+`
		WHERE s.id = ?
		GROUP BY s.id`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// SessionRecords returns a session's records in first-seen order. When
// severities is non-empty only those severities are returned.
func (db *DB) SessionRecords(ctx context.Context, sessionID string, severities ...logentry.Severity) ([]Record, error) {
	query := `
		SELECT session_id, hash, severity, mode, condition, file, line, code, count, first_seen, last_seen
		FROM records WHERE session_id = ?`
	args := []any{sessionID}
	if len(severities) > 0 {
		query += " AND severity IN (?" + strings.Repeat(", ?", len(severities)-1) + ")"
		for _, s := range severities {
			args = append(args, s.String())
		}
	}
	query += " ORDER BY first_seen, rowid"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r               Record
			hash, mode      int64
			severity        string
			first, lastSeen int64
		)
		if err := rows.Scan(&r.SessionID, &hash, &severity, &mode, &r.Condition, &r.File, &r.Line,
			&r.Code, &r.Count, &first, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Hash = uint64(hash)
		r.Mode = logentry.Mode(mode)
		r.Severity = logentry.ParseSeverity(severity)
		r.FirstSeen = fromMillis(first)
		r.LastSeen = fromMillis(lastSeen)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneSessions deletes sessions started before cutoff along with their
// records. It returns the number of sessions removed.
func (db *DB) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE started_at < ?", toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}
