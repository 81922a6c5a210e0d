package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seen_mentions (
    id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS mentions (
    record TEXT NOT NULL,
    score  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mentions_rank ON mentions (score DESC, record ASC);
`

// SQLiteStore persists the seen-set and the recency index in SQLite.
type SQLiteStore struct {
	db          *sql.DB
	maxMentions int
}

var _ ports.MentionStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dsn and prepares the
// schema. maxMentions caps the recency index.
func NewSQLiteStore(dsn string, maxMentions int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}

	// Session pragmas apply per connection; a single pooled connection keeps
	// them effective and serializes writers, so concurrent callers queue
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, maxMentions: maxMentions}, nil
}

// Admit adds id to the seen-set via INSERT OR IGNORE, SQLite's atomic
// add-if-absent. The affected-row count decides newness, so concurrent
// callers racing on the same id see exactly one true.
func (s *SQLiteStore) Admit(ctx context.Context, id string) (bool, error) {
	res, err := sq.Insert("seen_mentions").
		Options("OR IGNORE").
		Columns("id").
		Values(id).
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

// Store inserts the serialized mention scored by its publication epoch and
// trims the index back to capacity. Insert and trim share one transaction;
// rows are ranked by (score DESC, record ASC) so eviction under equal
// scores stays deterministic.
func (s *SQLiteStore) Store(ctx context.Context, m domain.Mention) error {
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
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("insert mention %s: %w", m.ID, err)
	}

	trim := `DELETE FROM mentions WHERE rowid IN (
	            SELECT rowid FROM mentions
	            ORDER BY score DESC, record ASC
	            LIMIT -1 OFFSET ?
	         )`
	if _, err := tx.ExecContext(ctx, trim, s.maxMentions); err != nil {
		return fmt.Errorf("trim mentions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store tx: %w", err)
	}

	return nil
}

// Latest reads up to limit mentions in descending score order. The limit is
// clamped to the allowed band; malformed rows are skipped so a corrupted
// record never aborts the read.
func (s *SQLiteStore) Latest(ctx context.Context, limit int) ([]domain.Mention, error) {
	return readLatest(ctx, s.db, sq.Question, limit)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func readLatest(ctx context.Context, db sq.BaseRunner, format sq.PlaceholderFormat, limit int) ([]domain.Mention, error) {
	limit = domain.ClampLatestLimit(limit)

	rows, err := sq.Select("record").
		From("mentions").
		OrderBy("score DESC", "record ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(format).
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	mentions := make([]domain.Mention, 0, limit)
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		var m domain.Mention
		if err := json.Unmarshal([]byte(record), &m); err != nil {
			continue
		}
		mentions = append(mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return mentions, nil
}
