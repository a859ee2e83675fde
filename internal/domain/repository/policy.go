package repository

import (
	"context"
	"time"
)

// VersionPolicy es la política de versión mínima del cliente.
// Solo puede haber una activa (índice único parcial en el store).
type VersionPolicy struct {
	ID             int64     `json:"id"`
	MinimumVersion string    `json:"minimum_version"`
	CurrentVersion string    `json:"current_version"`
	DownloadURL    *string   `json:"download_url,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// SetPolicyInput contiene los datos de una nueva política activa.
type SetPolicyInput struct {
	MinimumVersion string
	CurrentVersion string
	DownloadURL    *string
}

// PolicyRepository maneja las políticas de versión.
type PolicyRepository interface {
	// GetActivePolicy retorna la política activa más reciente.
	// Retorna ErrNotFound si no hay ninguna activa.
	GetActivePolicy(ctx context.Context) (*VersionPolicy, error)

	// SetActivePolicy desactiva la política vigente e inserta la nueva como
	// activa, de forma atómica.
	SetActivePolicy(ctx context.Context, in SetPolicyInput) (*VersionPolicy, error)
}
