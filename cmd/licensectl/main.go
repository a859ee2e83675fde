package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
	"github.com/dropDatabas3/licensegate/internal/store"
)

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	logger.Init(logger.Config{Env: envOr("APP_ENV", "dev"), Level: envOr("LOG_LEVEL", "warn"), ServiceName: "licensectl"})
	defer func() { _ = logger.Sync() }()

	opts := &storeOpts{
		Driver: envOr("STORAGE_DRIVER", "postgres"),
		DSN:    envOr("STORAGE_DSN", os.Getenv("DATABASE_URL")),
	}
	root := newRootCmd(opts, func(ctx context.Context) (repository.Store, error) {
		return store.Open(ctx, store.Config{Driver: opts.Driver, DSN: opts.DSN})
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
