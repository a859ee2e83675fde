package license

import (
	"context"

	dto "github.com/dropDatabas3/licensegate/internal/http/dto/license"
)

// VersionService expone la política de versión activa a los clientes.
type VersionService interface {
	Current(ctx context.Context) (*dto.VersionResponse, error)
}

type versionService struct {
	policies PolicyProvider
}

// NewVersionService crea el service.
func NewVersionService(p PolicyProvider) VersionService {
	return &versionService{policies: p}
}

func (s *versionService) Current(ctx context.Context) (*dto.VersionResponse, error) {
	p, err := s.policies.Active(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &dto.VersionResponse{}, nil
	}
	return &dto.VersionResponse{
		MinimumVersion: p.MinimumVersion,
		CurrentVersion: p.CurrentVersion,
		DownloadURL:    p.DownloadURL,
	}, nil
}
