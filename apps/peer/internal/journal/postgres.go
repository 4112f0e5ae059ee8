package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Append(ctx context.Context, entries []Entry) error {
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
VALUES ($1, $2, $3, $4, $5, $6, $7)
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
		if _, err := stmt.ExecContext(ctx, e.MatchID, int64(e.Seq), e.EventType, string(e.Payload), e.ReceivedAtMs, e.FromHistory, nowMs); err != nil {
			return fmt.Errorf("append %s seq=%d: %w", e.MatchID, e.Seq, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Load(ctx context.Context, matchID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, event_type, payload, received_at_ms, from_history
FROM journal_events
WHERE match_id = $1
ORDER BY seq ASC
`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, 64)
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		e := Entry{MatchID: matchID}
		if err := rows.Scan(&seq, &e.EventType, &payload, &e.ReceivedAtMs, &e.FromHistory); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Payload = []byte(payload)
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

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, COUNT(*), MIN(received_at_ms), MAX(received_at_ms)
FROM journal_events
GROUP BY match_id
ORDER BY MAX(received_at_ms) DESC, match_id ASC
LIMIT $1
`, recentLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS journal_events (
    id BIGSERIAL PRIMARY KEY,
    match_id TEXT NOT NULL,
    seq BIGINT NOT NULL,
    event_type TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    received_at_ms BIGINT NOT NULL,
    from_history BOOLEAN NOT NULL DEFAULT FALSE,
    created_at_ms BIGINT NOT NULL,
    UNIQUE (match_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_events_received_at ON journal_events(received_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// Two peers racing on first start both try to create the table.
			if isUniqueViolation(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
