package repository

import (
	"context"
	"time"
)

// License es una license key vendida. Se crea fuera de banda (licensectl) y
// el servicio de validación solo la lee.
type License struct {
	Key       string     `json:"key"`
	Revoked   bool       `json:"revoked"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reporta si la licencia venció al instante now.
// Una licencia sin ExpiresAt no vence nunca.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// CreateLicenseInput contiene los datos para crear una licencia.
type CreateLicenseInput struct {
	Key       string
	ExpiresAt *time.Time
}

// LicenseRepository maneja la persistencia de license keys.
type LicenseRepository interface {
	// GetLicense busca una licencia por su key.
	// Retorna ErrNotFound si no existe.
	GetLicense(ctx context.Context, key string) (*License, error)

	// CreateLicense inserta una licencia nueva.
	// Retorna ErrConflict si la key ya existe.
	CreateLicense(ctx context.Context, in CreateLicenseInput) (*License, error)

	// RevokeLicense marca la licencia como revocada. No hay camino inverso.
	// Retorna ErrNotFound si no existe.
	RevokeLicense(ctx context.Context, key string) error
}
