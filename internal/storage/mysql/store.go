// Package mysql is the MySQL-backed domain.KVStore: one kv_store table,
// JSON values, schema managed by embedded migrations.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const backend = "mysql"

type Store struct{ db *sql.DB }

var _ domain.CASStore = (*Store)(nil)

func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects, pings and migrates. The DSN must allow multiStatements.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	drv, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, getSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveStore(backend, "get", false, nil)
		return nil, false, nil
	}
	if err != nil {
		observability.ObserveStore(backend, "get", false, err)
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	if !json.Valid(v) {
		log.Warn().Str("key", key).Msg("malformed JSON value; treating as absent")
		observability.ObserveStore(backend, "get", false, nil)
		return nil, false, nil
	}
	observability.ObserveStore(backend, "get", true, nil)
	return json.RawMessage(v), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, upsertSQL, key, string(value))
	observability.ObserveStore(backend, "set", false, err)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteSQL, key)
	observability.ObserveStore(backend, "delete", false, err)
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	out, err := s.scan(ctx, prefix)
	observability.ObserveStore(backend, "scan", false, err)
	return out, err
}

func (s *Store) scan(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, prefixSQL, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("kv scan %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("kv scan %q: %w", prefix, err)
		}
		if !json.Valid(v) {
			log.Warn().Str("key", k).Msg("skipping malformed JSON value")
			continue
		}
		out = append(out, append(json.RawMessage(nil), v...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv scan %q: %w", prefix, err)
	}
	return out, nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx, deletePrefixSQL, likePrefix(prefix))
	observability.ObserveStore(backend, "delete_prefix", false, err)
	if err != nil {
		return 0, fmt.Errorf("kv delete prefix %q: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("kv delete prefix %q: %w", prefix, err)
	}
	return int(n), nil
}

// CompareAndSwap maps onto one statement each: a plain INSERT that loses on the
// primary key, or an UPDATE/DELETE guarded by the old value.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, next json.RawMessage) (bool, error) {
	ok, err := s.swap(ctx, key, old, next)
	observability.ObserveStore(backend, "cas", ok, err)
	if err != nil {
		return false, fmt.Errorf("kv cas %q: %w", key, err)
	}
	return ok, nil
}

func (s *Store) swap(ctx context.Context, key string, old, next json.RawMessage) (bool, error) {
	var (
		res sql.Result
		err error
	)
	switch {
	case old == nil && next == nil:
		err := s.db.QueryRowContext(ctx, getSQL, key).Scan(new([]byte))
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	case old == nil:
		_, err := s.db.ExecContext(ctx, insertSQL, key, string(next))
		var me *gomysql.MySQLError
		if errors.As(err, &me) && me.Number == erDupEntry {
			return false, nil
		}
		return err == nil, err
	case next == nil:
		res, err = s.db.ExecContext(ctx, deleteIfSQL, key, string(old))
	default:
		res, err = s.db.ExecContext(ctx, swapSQL, string(next), key, string(old))
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
