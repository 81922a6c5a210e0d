package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // Postgres driver

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS seen_mentions (
    id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS mentions (
    record TEXT NOT NULL,
    score  BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mentions_rank ON mentions (score DESC, record ASC);
`

// PostgresStore persists the seen-set and the recency index in Postgres.
// Semantics mirror SQLiteStore; only the atomic-insert dialect differs.
type PostgresStore struct {
	db          *sql.DB
	maxMentions int
}

var _ ports.MentionStore = (*PostgresStore)(nil)

// NewPostgresStore connects using the given DSN and prepares the schema.
func NewPostgresStore(dsn string, maxMentions int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStore{db: db, maxMentions: maxMentions}, nil
}

// Admit adds id to the seen-set with ON CONFLICT DO NOTHING, Postgres's
// atomic add-if-absent, and reports newness from the affected-row count.
func (s *PostgresStore) Admit(ctx context.Context, id string) (bool, error) {
	res, err := sq.Insert("seen_mentions").
		Columns("id").
		Values(id).
		Suffix("ON CONFLICT (id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("admit mention: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("admit rows affected: %w", err)
	}

	return affected == 1, nil
}

// Store inserts the serialized mention and rank-trims the index in one
// transaction, keeping the highest (score, record) rows.
func (s *PostgresStore) Store(ctx context.Context, m domain.Mention) error {
	record, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("serialize mention %s: %w", m.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := sq.Insert("mentions").
		Columns("record", "score").
		Values(string(record), m.PublishedTS).
		PlaceholderFormat(sq.Dollar).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("insert mention %s: %w", m.ID, err)
	}

	trim := `DELETE FROM mentions WHERE ctid IN (
	            SELECT ctid FROM mentions
	            ORDER BY score DESC, record ASC
	            OFFSET $1
	         )`
	if _, err := tx.ExecContext(ctx, trim, s.maxMentions); err != nil {
		return fmt.Errorf("trim mentions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store tx: %w", err)
	}

	return nil
}

// Latest reads up to limit mentions in descending score order, skipping
// rows that no longer deserialize.
func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]domain.Mention, error) {
	return readLatest(ctx, s.db, sq.Dollar, limit)
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
