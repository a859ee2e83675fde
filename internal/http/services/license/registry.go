package license

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

// Registry resuelve license keys contra el Record Store.
type Registry interface {
	// Lookup retorna repository.ErrNotFound si la key no existe.
	Lookup(ctx context.Context, key string) (*repository.License, error)
}

type registry struct {
	repo repository.LicenseRepository
}

// NewRegistry crea el registry sobre el repo de licencias.
func NewRegistry(repo repository.LicenseRepository) Registry {
	return &registry{repo: repo}
}

func (r *registry) Lookup(ctx context.Context, key string) (*repository.License, error) {
	l, err := r.repo.GetLicense(ctx, key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("license lookup: %w", err)
	}
	return l, nil
}
