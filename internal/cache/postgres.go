package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the cache store needs; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a pool to the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dot_cache_meta (
	key         TEXT PRIMARY KEY,
	created     TIMESTAMPTZ NOT NULL,
	last_access TIMESTAMPTZ NOT NULL,
	size_bytes  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS dot_cache_payload (
	key     TEXT PRIMARY KEY REFERENCES dot_cache_meta(key) ON DELETE CASCADE,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dot_cache_meta_last_access ON dot_cache_meta(last_access);
CREATE INDEX IF NOT EXISTS idx_dot_cache_meta_created ON dot_cache_meta(created);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT m.key, m.created, m.last_access, m.size_bytes, p.payload
		FROM dot_cache_meta m JOIN dot_cache_payload p ON p.key = m.key
		WHERE m.key = $1`, key)

	var e Entry
	var raw []byte
	err := row.Scan(&e.Key, &e.Created, &e.LastAccess, &e.SizeBytes, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get entry")
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal payload")
	}
	e.Dots = p.Dots
	e.Debug = p.Debug
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, e *Entry) error {
	raw, err := json.Marshal(payload{Dots: e.Dots, Debug: e.Debug})
	if err != nil {
		return eris.Wrap(err, "postgres: marshal payload")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dot_cache_meta (key, created, last_access, size_bytes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			created = EXCLUDED.created,
			last_access = EXCLUDED.last_access,
			size_bytes = EXCLUDED.size_bytes`,
		e.Key, e.Created, e.LastAccess, e.SizeBytes,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert meta")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dot_cache_payload (key, payload) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload`,
		e.Key, raw,
	)
	return eris.Wrap(err, "postgres: upsert payload")
}

func (s *PostgresStore) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE dot_cache_meta SET last_access = $1 WHERE key = $2`, at, key)
	return eris.Wrapf(err, "postgres: touch %s", key)
}

func (s *PostgresStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dot_cache_meta WHERE created < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: evict stale")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) EvictOldestHalf(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM dot_cache_meta WHERE key IN (
			SELECT key FROM dot_cache_meta ORDER BY last_access ASC
			LIMIT (SELECT COUNT(*) / 2 FROM dot_cache_meta))`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: evict oldest half")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dot_cache_meta`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count entries")
}
