package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/licensegate/internal/config"
	"github.com/dropDatabas3/licensegate/internal/http/server"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// configPath resuelve la ruta del YAML: flag, $CONFIG_PATH, configs/config.yaml.
// Vacío significa solo env.
func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if fileExists("configs/config.yaml") {
		return "configs/config.yaml"
	}
	return ""
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml; sin archivo usa solo env)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		}
	}

	path := configPath(*flagConfigPath)
	cfg, err := config.LoadOrEnv(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logEnv := "dev"
	if cfg.IsProd() {
		logEnv = "prod"
	}
	logger.Init(logger.Config{
		Env:         logEnv,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := run(cfg, path); err != nil {
		log.Error("service stopped with error", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Close(cctx); err != nil {
			log.Warn("cleanup error", logger.Err(err))
		}
	}()

	// SIGHUP: releer la config y aplicar el kill switch. Es el único punto de
	// recarga en caliente.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				next, err := config.LoadOrEnv(path)
				if err != nil {
					log.Error("config reload failed, keeping current", logger.Err(err))
					continue
				}
				app.Reload(ctx, next)
			}
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	log.Info("service up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.String("config", path),
	)
	return server.Serve(ctx, srv, cfg.Server.ShutdownTimeout)
}
