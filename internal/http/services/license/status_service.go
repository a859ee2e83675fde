package license

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// InputError es un error de validación de entrada (400).
type InputError struct{ Detail string }

func (e *InputError) Error() string { return "invalid input: " + e.Detail }

// StatusService responde cuánto le queda a una licencia. Nunca escribe.
type StatusService interface {
	Status(ctx context.Context, in dto.StatusRequest) (*dto.StatusResponse, error)
}

// StatusDeps contiene las dependencias del status service.
type StatusDeps struct {
	Registry Registry
	Bindings repository.BindingRepository
	Now      func() time.Time
}

type statusService struct {
	deps StatusDeps
}

// NewStatusService crea el service.
func NewStatusService(deps StatusDeps) StatusService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &statusService{deps: deps}
}

func (s *statusService) Status(ctx context.Context, in dto.StatusRequest) (*dto.StatusResponse, error) {
	in.Key = strings.TrimSpace(in.Key)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	if err := helpers.ValidateStruct(in); err != nil {
		return nil, &InputError{Detail: err.Error()}
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("license.status"),
		logger.Op("Status"),
		logger.Fingerprint(licensing.Fingerprint(in.Key)),
	)

	lic, err := s.deps.Registry.Lookup(ctx, in.Key)
	if err != nil {
		if repository.IsNotFound(err) {
			return &dto.StatusResponse{Status: dto.StatusInvalid}, nil
		}
		log.Error("license lookup failed", logger.Err(err))
		return nil, err
	}

	now := s.deps.Now()
	resp := &dto.StatusResponse{Status: dto.StatusActive, ExpiresAt: lic.ExpiresAt}
	switch {
	case lic.Revoked:
		resp.Status = dto.StatusRevoked
	case lic.Expired(now):
		resp.Status = dto.StatusExpired
		zero := 0
		resp.DaysRemaining = &zero
	case lic.ExpiresAt != nil:
		days := int(math.Ceil(lic.ExpiresAt.Sub(now).Hours() / 24))
		resp.DaysRemaining = &days
	}

	b, err := s.deps.Bindings.GetBinding(ctx, in.Key)
	switch {
	case err == nil:
		resp.Bound = true
		resp.ThisDevice = in.DeviceID != "" && b.DeviceID == in.DeviceID
	case !repository.IsNotFound(err):
		log.Error("binding lookup failed", logger.Err(err))
		return nil, fmt.Errorf("get binding: %w", err)
	}
	return resp, nil
}
