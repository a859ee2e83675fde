package license

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/licensing"
)

// Toucher encola la actualización de telemetría de un binding. Nunca
// bloquea ni falla el request.
type Toucher interface {
	TouchBinding(licenseKey, deviceID string, seen repository.DeviceSeen) bool
}

// BindingResult es la resolución para un par key/device.
type BindingResult struct {
	Resolution    licensing.Resolution
	BoundDeviceID string
}

// BindingManager hace cumplir una licencia = un device.
type BindingManager interface {
	// Resolve crea el binding si la key no tiene uno, o compara contra el
	// existente. Un binding existente nunca cambia de device.
	Resolve(ctx context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) (BindingResult, error)
}

type bindingManager struct {
	repo  repository.BindingRepository
	touch Toucher
}

// NewBindingManager crea el manager. touch puede ser nil.
func NewBindingManager(repo repository.BindingRepository, touch Toucher) BindingManager {
	return &bindingManager{repo: repo, touch: touch}
}

func (m *bindingManager) Resolve(ctx context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) (BindingResult, error) {
	b, err := m.repo.GetBinding(ctx, licenseKey)
	if err == nil {
		return m.compare(b, deviceID, seen), nil
	}
	if !repository.IsNotFound(err) {
		return BindingResult{}, fmt.Errorf("get binding: %w", err)
	}

	// Sin binding: un único insert condicional decide quién gana.
	b, created, err := m.repo.CreateBindingIfAbsent(ctx, licenseKey, deviceID, seen)
	if err != nil {
		if repository.IsNotFound(err) {
			return BindingResult{}, repository.ErrNotFound
		}
		return BindingResult{}, fmt.Errorf("create binding: %w", err)
	}
	if created {
		return BindingResult{Resolution: licensing.NewBinding, BoundDeviceID: b.DeviceID}, nil
	}
	return m.compare(b, deviceID, seen), nil
}

func (m *bindingManager) compare(b *repository.DeviceBinding, deviceID string, seen repository.DeviceSeen) BindingResult {
	if b.DeviceID != deviceID {
		return BindingResult{Resolution: licensing.BoundOtherDevice, BoundDeviceID: b.DeviceID}
	}
	if m.touch != nil {
		m.touch.TouchBinding(b.LicenseKey, deviceID, seen)
	}
	return BindingResult{Resolution: licensing.BoundThisDevice, BoundDeviceID: b.DeviceID}
}
