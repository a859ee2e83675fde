// Package server arma el servicio completo a partir de la configuración.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/licensegate/internal/cache"
	"github.com/dropDatabas3/licensegate/internal/config"
	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	healthctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/health"
	licensectrl "github.com/dropDatabas3/licensegate/internal/http/controllers/license"
	tokenctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/token"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	"github.com/dropDatabas3/licensegate/internal/http/router"
	healthsvc "github.com/dropDatabas3/licensegate/internal/http/services/health"
	licensesvc "github.com/dropDatabas3/licensegate/internal/http/services/license"
	jwtx "github.com/dropDatabas3/licensegate/internal/jwt"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/metrics"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
	"github.com/dropDatabas3/licensegate/internal/rate"
	"github.com/dropDatabas3/licensegate/internal/store"
	"github.com/dropDatabas3/licensegate/internal/store/pg"
	"github.com/dropDatabas3/licensegate/internal/telemetry"
)

// App es el servicio armado. Reload y Close son seguros para usar desde el
// manejo de señales.
type App struct {
	Handler http.Handler

	Switch   *licensing.Switch
	Policies licensesvc.PolicyProvider

	store    repository.Store
	cache    cache.Client
	recorder *telemetry.Recorder
}

// Build abre el store, el cache y la cola de telemetría y arma el handler.
// Si algo falla cierra lo que ya abrió.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.L().With(logger.Component("server.wiring"))
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	proxies, err := helpers.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	helpers.SetTrustedProxies(proxies)

	// 1. Record Store
	sc := store.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN}
	sc.Postgres.MaxConns = cfg.Storage.Postgres.MaxConns
	sc.Postgres.MinConns = cfg.Storage.Postgres.MinConns
	sc.Postgres.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime
	st, err := store.Open(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, st.Close)

	var pool func() *pgxpool.Pool
	if pgs, ok := st.(*pg.Store); ok {
		pool = pgs.Pool
		if cfg.Storage.AutoMigrate {
			res, err := pgs.Migrate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied",
				logger.Int("applied", len(res.Applied)),
				logger.Int("skipped", len(res.Skipped)),
				logger.Duration("took", res.Duration))
		}
	} else {
		log.Warn("using in-memory record store, data is lost on restart")
	}

	// 2. Cache + rate limiter (comparten el cliente Redis)
	var (
		c          cache.Client
		limiter    rate.Limiter
		cacheCheck func(context.Context) error
	)
	switch cfg.Cache.Kind {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if perr := rdb.Ping(ctx).Err(); perr != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", perr)
		}
		c = cache.NewRedisFromClient(rdb, cfg.Cache.Redis.Prefix)
		cacheCheck = c.Ping
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+":rl:", cfg.Rate.MaxRequests, cfg.Rate.Window)
		}
	default:
		c = cache.NewMemory(cfg.Cache.Redis.Prefix)
		if cfg.Rate.Enabled {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window)
		}
	}
	closers = append(closers, c.Close)

	// 3. Issuer
	iss, err := jwtx.NewIssuer(cfg.Token.Issuer, []byte(cfg.Token.Secret))
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	// 4. Telemetry
	rec := telemetry.New(st, telemetry.Config{
		QueueSize:    cfg.Telemetry.QueueSize,
		Workers:      cfg.Telemetry.Workers,
		WriteTimeout: cfg.Telemetry.WriteTimeout,
	})
	rec.Start(ctx)

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg, pool); err != nil {
		_ = rec.Close(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 6. Services + controllers + router
	sw := licensing.NewSwitch(SnapshotFrom(cfg))
	svcs := licensesvc.NewServices(licensesvc.Deps{
		Store:     st,
		Cache:     c,
		PolicyTTL: cfg.Cache.PolicyTTL,
		Switch:    sw,
		Issuer:    iss,
		Telemetry: rec,
	})
	health := healthsvc.NewHealthService(healthsvc.Deps{
		DBCheck:    st.Ping,
		CacheCheck: cacheCheck,
		Signer:     iss,
		Switch:     sw,
		Version:    cfg.App.Version,
	})

	h := router.New(router.Deps{
		License:  licensectrl.NewControllers(svcs),
		Token:    tokenctrl.NewVerifyController(),
		Health:   healthctrl.NewHealthController(health),
		Verifier: iss,
		Limiter:  limiter,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	log.Info("service wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", limiter != nil),
		logger.Bool("maintenance", sw.Active()),
		logger.Int("trusted_proxies", len(proxies)),
	)

	return &App{
		Handler:  h,
		Switch:   sw,
		Policies: svcs.Policies,
		store:    st,
		cache:    c,
		recorder: rec,
	}, nil
}

// SnapshotFrom extrae el estado del kill switch de la configuración.
func SnapshotFrom(cfg *config.Config) licensing.Snapshot {
	return licensing.Snapshot{
		Maintenance: cfg.Maintenance.Enabled,
		Message:     cfg.Maintenance.Message,
	}
}

// Reload aplica la parte recargable de cfg: el kill switch, y descarta la
// política cacheada para que la próxima lectura vaya al store.
func (a *App) Reload(ctx context.Context, cfg *config.Config) {
	a.Switch.Refresh(SnapshotFrom(cfg))
	a.Policies.Invalidate(ctx)
	logger.From(ctx).Info("configuration reloaded",
		logger.Component("server.wiring"),
		logger.Bool("maintenance", a.Switch.Active()))
}

// Close drena la telemetría y cierra cache y store.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.recorder.Close(ctx),
		a.cache.Close(),
		a.store.Close(),
	)
}
