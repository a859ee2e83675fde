package repository

import (
	"context"
	"time"
)

// UsageEvent es un registro de uso best-effort (telemetría).
type UsageEvent struct {
	ID            string
	Fingerprint   string
	DeviceID      string
	Endpoint      string
	Outcome       string
	IP            string
	UserAgent     string
	ClientVersion string
	CreatedAt     time.Time
}

// UsageRepository persiste eventos de uso.
type UsageRepository interface {
	InsertUsageEvent(ctx context.Context, ev UsageEvent) error
}

// Store agrupa todo lo que el servicio de licencias necesita del Record Store.
type Store interface {
	LicenseRepository
	BindingRepository
	PolicyRepository
	UsageRepository

	Ping(ctx context.Context) error
	Close() error
}
