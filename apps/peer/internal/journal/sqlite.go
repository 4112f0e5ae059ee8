package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: a :memory: database lives and dies with it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pragmas := []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = NORMAL;`,
	}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO journal_events (
    match_id, seq, event_type, payload, received_at_ms, from_history, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (match_id, seq) DO NOTHING
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	nowMs := time.Now().UTC().UnixMilli()
	for _, e := range entries {
		if strings.TrimSpace(e.MatchID) == "" {
			return ErrEmptyMatch
		}
		if _, err := stmt.ExecContext(ctx, e.MatchID, int64(e.Seq), e.EventType, string(e.Payload), e.ReceivedAtMs, boolToInt(e.FromHistory), nowMs); err != nil {
			return fmt.Errorf("append %s seq=%d: %w", e.MatchID, e.Seq, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context, matchID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, event_type, payload, received_at_ms, from_history
FROM journal_events
WHERE match_id = ?
ORDER BY seq ASC
`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, 64)
	for rows.Next() {
		var (
			seq         int64
			payload     string
			fromHistory int
		)
		e := Entry{MatchID: matchID}
		if err := rows.Scan(&seq, &e.EventType, &payload, &e.ReceivedAtMs, &fromHistory); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Payload = []byte(payload)
		e.FromHistory = fromHistory != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, COUNT(*), MIN(received_at_ms), MAX(received_at_ms)
FROM journal_events
GROUP BY match_id
ORDER BY MAX(received_at_ms) DESC, match_id ASC
LIMIT ?
`, recentLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	out := make([]Summary, 0, 16)
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.MatchID, &sum.Events, &sum.FirstAtMs, &sum.LastAtMs); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS journal_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    received_at_ms INTEGER NOT NULL,
    from_history INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    UNIQUE (match_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_events_received_at ON journal_events(received_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
