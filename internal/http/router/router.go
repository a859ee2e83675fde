// Package router arma el árbol de rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/health"
	licensectrl "github.com/dropDatabas3/licensegate/internal/http/controllers/license"
	tokenctrl "github.com/dropDatabas3/licensegate/internal/http/controllers/token"
	httperrors "github.com/dropDatabas3/licensegate/internal/http/errors"
	mw "github.com/dropDatabas3/licensegate/internal/http/middlewares"
	"github.com/dropDatabas3/licensegate/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	License *licensectrl.Controllers
	Token   *tokenctrl.VerifyController
	Health  *healthctrl.HealthController

	Verifier mw.AccessVerifier
	Limiter  rate.Limiter // opcional
	Metrics  http.Handler // opcional, se monta en /metrics
}

// New construye el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Infra común a todas las rutas.
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithMetrics(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Health y métricas: sin logging (muy frecuentes) ni rate limit.
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithLogging(),
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{Limiter: deps.Limiter}),
		)

		registerLicenseRoutes(r, deps.License)

		r.With(mw.RequireAccessToken(deps.Verifier)).
			Get("/v1/token/verify", deps.Token.Verify)
	})

	return r
}

func registerLicenseRoutes(r chi.Router, c *licensectrl.Controllers) {
	r.Get("/v1/license/validate", c.Validate.Validate)
	// Clientes viejos.
	r.Get("/api/validate", c.Validate.Validate)

	r.Get("/v1/license/status", c.Status.Status)
	r.Get("/v1/version", c.Version.Current)
}
