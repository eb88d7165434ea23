package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Metadata and payload
// live in separate tables keyed by the namespaced cache key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dot_cache_meta (
	key         TEXT PRIMARY KEY,
	created     DATETIME NOT NULL,
	last_access DATETIME NOT NULL,
	size_bytes  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dot_cache_payload (
	key     TEXT PRIMARY KEY REFERENCES dot_cache_meta(key),
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dot_cache_meta_last_access ON dot_cache_meta(last_access);
CREATE INDEX IF NOT EXISTS idx_dot_cache_meta_created ON dot_cache_meta(created);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.key, m.created, m.last_access, m.size_bytes, p.payload
		FROM dot_cache_meta m JOIN dot_cache_payload p ON p.key = m.key
		WHERE m.key = ?`, key)

	var e Entry
	var raw string
	err := row.Scan(&e.Key, &e.Created, &e.LastAccess, &e.SizeBytes, &raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get entry")
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal payload")
	}
	e.Dots = p.Dots
	e.Debug = p.Debug
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e *Entry) error {
	raw, err := json.Marshal(payload{Dots: e.Dots, Debug: e.Debug})
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin put")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dot_cache_meta (key, created, last_access, size_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			created = excluded.created,
			last_access = excluded.last_access,
			size_bytes = excluded.size_bytes`,
		e.Key, e.Created, e.LastAccess, e.SizeBytes,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert meta")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dot_cache_payload (key, payload) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload`,
		e.Key, string(raw),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert payload")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit put")
}

func (s *SQLiteStore) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE dot_cache_meta SET last_access = ? WHERE key = ?`, at, key)
	return eris.Wrapf(err, "sqlite: touch %s", key)
}

func (s *SQLiteStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin evict")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		DELETE FROM dot_cache_payload WHERE key IN (
			SELECT key FROM dot_cache_meta WHERE created < ?)`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evict payloads")
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM dot_cache_meta WHERE created < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evict meta")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}

	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit evict")
}

func (s *SQLiteStore) EvictOldestHalf(ctx context.Context) (int, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	half := total / 2
	if half == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin evict half")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		DELETE FROM dot_cache_payload WHERE key IN (
			SELECT key FROM dot_cache_meta ORDER BY last_access ASC LIMIT ?)`, half)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evict half payloads")
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM dot_cache_meta WHERE key IN (
			SELECT key FROM dot_cache_meta ORDER BY last_access ASC LIMIT ?)`, half)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evict half meta")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}

	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit evict half")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dot_cache_meta`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count entries")
}
