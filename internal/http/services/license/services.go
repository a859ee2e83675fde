// Package license contiene los services del motor de validación de
// licencias y binding de devices.
package license

import (
	"time"

	"github.com/dropDatabas3/licensegate/internal/cache"
	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/licensing"
)

// Telemetry es la cola best-effort de uso y touches.
type Telemetry interface {
	UsageRecorder
	Toucher
}

// Deps contiene las dependencias para crear los services de licencias.
type Deps struct {
	Store     repository.Store
	Cache     cache.Client  // opcional
	PolicyTTL time.Duration // TTL del cache de política
	Switch    *licensing.Switch
	Issuer    Issuer
	Telemetry Telemetry // opcional
}

// Services agrupa los services del dominio license.
type Services struct {
	Validate ValidateService
	Status   StatusService
	Version  VersionService
	Policies PolicyProvider
}

// NewServices crea el agregador de services de licencias.
func NewServices(d Deps) Services {
	var (
		usage UsageRecorder
		touch Toucher
	)
	if d.Telemetry != nil {
		usage, touch = d.Telemetry, d.Telemetry
	}

	reg := NewRegistry(d.Store)
	policies := NewPolicyProvider(d.Store, d.Cache, d.PolicyTTL)

	return Services{
		Validate: NewValidateService(ValidateDeps{
			Switch:   d.Switch,
			Registry: reg,
			Bindings: NewBindingManager(d.Store, touch),
			Policies: policies,
			Issuer:   d.Issuer,
			Usage:    usage,
		}),
		Status: NewStatusService(StatusDeps{
			Registry: reg,
			Bindings: d.Store,
		}),
		Version:  NewVersionService(policies),
		Policies: policies,
	}
}
