// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	jwtx "github.com/dropDatabas3/licensegate/internal/jwt"
	dto "github.com/dropDatabas3/licensegate/internal/http/dto/health"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Signer es lo que el self-check del issuer necesita.
type Signer interface {
	Issue(licenseKey, deviceID string) (string, time.Time, error)
	Verify(token string) (*jwtx.AccessClaims, error)
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	DBCheck    func(ctx context.Context) error // ping del Record Store
	CacheCheck func(ctx context.Context) error // nil = sin cache externo
	Signer     Signer
	Switch     *licensing.Switch
	Version    string
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Components:  make(map[string]dto.HealthStatus),
		Version:     s.deps.Version,
		Maintenance: s.deps.Switch.Active(),
		Timestamp:   time.Now().UTC(),
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) Record Store (crítico)
	if s.deps.DBCheck != nil {
		if err := s.deps.DBCheck(ctx); err != nil {
			response.Components["store"] = dto.HealthStatus{
				Status:  "error",
				Message: "unavailable",
			}
			hasCriticalErrors = true
			log.Error("store unavailable", logger.Err(err))
		} else {
			response.Components["store"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["store"] = dto.HealthStatus{
			Status:  "error",
			Message: "store not initialized",
		}
		hasCriticalErrors = true
	}

	// 2) Signer (crítico)
	if s.deps.Signer != nil {
		if err := s.checkSigner(); err != nil {
			response.Components["signer"] = dto.HealthStatus{
				Status:  "error",
				Message: err.Error(),
			}
			hasCriticalErrors = true
			log.Error("signer check failed", logger.Err(err))
		} else {
			response.Components["signer"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["signer"] = dto.HealthStatus{
			Status:  "error",
			Message: "issuer not initialized",
		}
		hasCriticalErrors = true
	}

	// 3) Cache (no crítico: la política cae al store)
	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			response.Components["cache"] = dto.HealthStatus{
				Status:  "error",
				Message: "unavailable",
			}
			hasErrors = true
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{
			Status:  "disabled",
			Message: "memory cache only",
		}
	}

	// 4) Kill switch (informativo)
	if response.Maintenance {
		response.Components["maintenance"] = dto.HealthStatus{Status: "on", Message: s.deps.Switch.Message()}
	} else {
		response.Components["maintenance"] = dto.HealthStatus{Status: "off"}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

func (s *healthService) checkSigner() error {
	tok, _, err := s.deps.Signer.Issue("health-selfcheck", "health")
	if err != nil {
		return fmt.Errorf("sign failed: %w", err)
	}
	if _, err := s.deps.Signer.Verify(tok); err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}
	return nil
}
