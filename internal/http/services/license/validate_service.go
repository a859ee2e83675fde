package license

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
	"github.com/dropDatabas3/licensegate/internal/http/helpers"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/metrics"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// RequestMeta es lo que el controller sabe del request, para telemetría.
type RequestMeta struct {
	IP        string
	UserAgent string
	Endpoint  string
}

// Decision es el resultado de una validación.
type Decision struct {
	Outcome       licensing.Outcome
	Message       string
	DeviceID      string
	BoundDeviceID string
	NewDevice     bool
	Update        *licensing.UpdateInfo
	Token         string
	ExpiresAt     time.Time
}

// Issuer emite la credencial de acceso.
type Issuer interface {
	Issue(licenseKey, deviceID string) (token string, expiresAt time.Time, err error)
}

// UsageRecorder registra uso sin bloquear.
type UsageRecorder interface {
	RecordUsage(ev repository.UsageEvent) bool
}

// ValidateService decide el acceso de un par key/device.
type ValidateService interface {
	// Validate siempre devuelve una Decision. err != nil significa falla de
	// infraestructura y la Decision viene con OutcomeError.
	Validate(ctx context.Context, in dto.ValidateRequest, meta RequestMeta) (*Decision, error)
}

// ValidateDeps contiene las dependencias del orquestador.
type ValidateDeps struct {
	Switch   *licensing.Switch
	Registry Registry
	Bindings BindingManager
	Policies PolicyProvider
	Issuer   Issuer
	Usage    UsageRecorder    // opcional
	Now      func() time.Time // opcional
}

type validateService struct {
	deps ValidateDeps
}

// NewValidateService crea el orquestador.
func NewValidateService(deps ValidateDeps) ValidateService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &validateService{deps: deps}
}

const componentValidate = "license.validate"

func (s *validateService) Validate(ctx context.Context, in dto.ValidateRequest, meta RequestMeta) (*Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentValidate),
		logger.Op("Validate"),
	)

	// 1) kill switch: antes que cualquier otra cosa, sin tocar el store
	if s.deps.Switch.Active() {
		return s.done(log, &Decision{Outcome: licensing.OutcomeMaintenance, Message: s.deps.Switch.Message()}), nil
	}

	// 2) input
	in.Key = strings.TrimSpace(in.Key)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	in.Version = strings.TrimSpace(in.Version)
	if err := helpers.ValidateStruct(in); err != nil {
		return s.done(log, &Decision{Outcome: licensing.OutcomeInvalidRequest, Message: err.Error()}), nil
	}

	log = log.With(
		logger.Fingerprint(licensing.Fingerprint(in.Key)),
		logger.DeviceID(in.DeviceID),
		logger.ClientVersion(in.Version),
	)
	record := func(d *Decision) *Decision {
		s.recordUsage(in, meta, d)
		return s.done(log, d)
	}

	// 3) registry
	lic, err := s.deps.Registry.Lookup(ctx, in.Key)
	if err != nil {
		if repository.IsNotFound(err) {
			return record(&Decision{Outcome: licensing.OutcomeInvalid}), nil
		}
		return s.fail(log, "license lookup failed", err)
	}
	if lic.Revoked {
		return record(&Decision{Outcome: licensing.OutcomeRevoked}), nil
	}

	// 4) binding
	seen := repository.DeviceSeen{
		At:        s.deps.Now().UTC(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Endpoint:  meta.Endpoint,
	}
	res, err := s.deps.Bindings.Resolve(ctx, in.Key, in.DeviceID, seen)
	if err != nil {
		if repository.IsNotFound(err) {
			return record(&Decision{Outcome: licensing.OutcomeInvalid}), nil
		}
		return s.fail(log, "binding resolve failed", err)
	}
	if res.Resolution == licensing.BoundOtherDevice {
		return record(&Decision{
			Outcome:       licensing.OutcomeDeviceMismatch,
			DeviceID:      in.DeviceID,
			BoundDeviceID: res.BoundDeviceID,
		}), nil
	}

	d := &Decision{
		Outcome:   licensing.OutcomeValid,
		DeviceID:  in.DeviceID,
		NewDevice: res.Resolution == licensing.NewBinding,
	}

	// 5) version gate: solo puede pisar un VALID
	policy, err := s.deps.Policies.Active(ctx)
	if err != nil {
		return s.fail(log, "policy lookup failed", err)
	}
	gate := licensing.Evaluate(in.Version, policy)
	if gate.PolicyMalformed {
		log.Warn("version policy minimum is malformed, gate disabled",
			zap.String("minimum_version", policy.MinimumVersion))
	}
	if !gate.OK {
		d.Outcome = licensing.OutcomeUpdateRequired
		d.Update = gate.Info
		return record(d), nil
	}

	// 6) credencial
	tok, exp, err := s.deps.Issuer.Issue(in.Key, in.DeviceID)
	if err != nil {
		return s.fail(log, "credential issue failed", err)
	}
	d.Token, d.ExpiresAt = tok, exp
	return record(d), nil
}

func (s *validateService) done(log *zap.Logger, d *Decision) *Decision {
	metrics.LicenseValidations.WithLabelValues(d.Outcome.String()).Inc()
	fields := []zap.Field{logger.Outcome(d.Outcome.String())}
	if d.NewDevice {
		fields = append(fields, logger.Bool("new_device", true))
	}
	if d.BoundDeviceID != "" && d.Outcome == licensing.OutcomeDeviceMismatch {
		fields = append(fields, logger.BoundDeviceID(d.BoundDeviceID))
	}
	log.Info("license validation decided", fields...)
	return d
}

func (s *validateService) fail(log *zap.Logger, msg string, err error) (*Decision, error) {
	metrics.LicenseValidations.WithLabelValues(licensing.OutcomeError.String()).Inc()
	log.Error(msg, logger.Outcome(licensing.OutcomeError.String()), logger.Err(err))
	return &Decision{Outcome: licensing.OutcomeError}, err
}

func (s *validateService) recordUsage(in dto.ValidateRequest, meta RequestMeta, d *Decision) {
	if s.deps.Usage == nil {
		return
	}
	s.deps.Usage.RecordUsage(repository.UsageEvent{
		Fingerprint:   licensing.Fingerprint(in.Key),
		DeviceID:      in.DeviceID,
		Endpoint:      meta.Endpoint,
		Outcome:       d.Outcome.String(),
		IP:            meta.IP,
		UserAgent:     meta.UserAgent,
		ClientVersion: licensing.ClientVersion(in.Version).String(),
		CreatedAt:     s.deps.Now().UTC(),
	})
}
