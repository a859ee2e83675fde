// Package pg implementa el Record Store sobre PostgreSQL.
//
// El pool es pgxpool; las queries pasan por database/sql (driver stdlib de
// pgx) para poder testear los repos con sqlmock.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// Códigos SQLSTATE que mapeamos a errores de dominio.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Config ajusta el pool.
type Config struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Store implementa repository.Store.
type Store struct {
	db   *sql.DB
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// Open crea el pool y el *sql.DB encima. El ping inicial no es fatal: la app
// arranca aunque la DB esté caída y /readyz lo reporta.
func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: new pool: %w", err)
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		log.Info("pg_pool_ready", zap.Int32("max_conns", pcfg.MaxConns))
	}

	return &Store{db: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

// NewWithDB envuelve un *sql.DB ya abierto (tests con sqlmock).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// DB expone el *sql.DB (migraciones).
func (s *Store) DB() *sql.DB { return s.db }

// Pool expone el pool pgx para las métricas. Nil con NewWithDB.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close cierra el *sql.DB y el pool (idempotente).
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
