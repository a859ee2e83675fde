// Package store abre el Record Store configurado.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/store/memory"
	"github.com/dropDatabas3/licensegate/internal/store/pg"
)

// Config selecciona y ajusta el driver.
type Config struct {
	Driver   string // postgres | memory
	DSN      string
	Postgres struct {
		MaxConns        int32
		MinConns        int32
		ConnMaxLifetime time.Duration
	}
}

// Open devuelve el store del driver configurado.
func Open(ctx context.Context, cfg Config) (repository.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "pg", "postgresql":
		if cfg.DSN == "" {
			return nil, repository.ErrNoDatabase
		}
		return pg.Open(ctx, cfg.DSN, pg.Config{
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	case "memory", "mem", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
