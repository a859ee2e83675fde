package repository

import (
	"context"
	"time"
)

// DeviceBinding liga una license key a un único device.
// DeviceID es inmutable una vez creado el binding.
type DeviceBinding struct {
	LicenseKey    string    `json:"license_key"`
	DeviceID      string    `json:"device_id"`
	BoundAt       time.Time `json:"bound_at"`
	LastSeen      time.Time `json:"last_seen"`
	LastIP        *string   `json:"last_ip,omitempty"`
	LastUserAgent *string   `json:"last_user_agent,omitempty"`
	LastEndpoint  string    `json:"last_endpoint"`
}

// DeviceSeen agrupa la telemetría del request que tocó el binding.
type DeviceSeen struct {
	At        time.Time
	IP        string
	UserAgent string
	Endpoint  string
}

// BindingRepository maneja los bindings license → device.
type BindingRepository interface {
	// GetBinding retorna el binding de la key.
	// Retorna ErrNotFound si la key todavía no está ligada.
	GetBinding(ctx context.Context, licenseKey string) (*DeviceBinding, error)

	// CreateBindingIfAbsent inserta el binding solo si no existe uno para la key,
	// en una única escritura condicional. Retorna el binding vigente (el recién
	// creado o el del ganador de la carrera) y created=true solo si esta llamada
	// lo creó.
	CreateBindingIfAbsent(ctx context.Context, licenseKey, deviceID string, seen DeviceSeen) (b *DeviceBinding, created bool, err error)

	// TouchBinding actualiza solo los campos de telemetría del binding, y solo
	// si sigue perteneciendo a deviceID. Nunca cambia DeviceID.
	TouchBinding(ctx context.Context, licenseKey, deviceID string, seen DeviceSeen) error
}
