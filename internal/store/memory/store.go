// Package memory es un Record Store en memoria para dev y tests.
// Un único mutex serializa todas las escrituras, que es lo que vuelve
// atómico el insert-if-absent de bindings.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

// Store implementa repository.Store.
type Store struct {
	mu       sync.Mutex
	licenses map[string]repository.License
	bindings map[string]repository.DeviceBinding
	policies []repository.VersionPolicy
	usage    []repository.UsageEvent
	nextID   int64
	now      func() time.Time

	// failWith, si no es nil, hace fallar todas las operaciones (tests).
	failWith error
	// failUsage hace fallar solo las escrituras de telemetría.
	failUsage error
}

var _ repository.Store = (*Store)(nil)

// New crea un store vacío.
func New() *Store {
	return &Store{
		licenses: make(map[string]repository.License),
		bindings: make(map[string]repository.DeviceBinding),
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWith
}

func (s *Store) Close() error { return nil }

func (s *Store) GetLicense(_ context.Context, key string) (*repository.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	l, ok := s.licenses[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (s *Store) CreateLicense(_ context.Context, in repository.CreateLicenseInput) (*repository.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if in.Key == "" {
		return nil, repository.ErrInvalidInput
	}
	if _, ok := s.licenses[in.Key]; ok {
		return nil, repository.ErrConflict
	}
	l := repository.License{Key: in.Key, ExpiresAt: in.ExpiresAt, CreatedAt: s.now().UTC()}
	s.licenses[in.Key] = l
	return &l, nil
}

func (s *Store) RevokeLicense(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	l, ok := s.licenses[key]
	if !ok {
		return repository.ErrNotFound
	}
	l.Revoked = true
	s.licenses[key] = l
	return nil
}

func (s *Store) GetBinding(_ context.Context, licenseKey string) (*repository.DeviceBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	b, ok := s.bindings[licenseKey]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (s *Store) CreateBindingIfAbsent(_ context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) (*repository.DeviceBinding, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, false, s.failWith
	}
	if _, ok := s.licenses[licenseKey]; !ok {
		return nil, false, repository.ErrNotFound
	}
	if b, ok := s.bindings[licenseKey]; ok {
		return &b, false, nil
	}
	at := seen.At
	if at.IsZero() {
		at = s.now()
	}
	b := repository.DeviceBinding{
		LicenseKey:    licenseKey,
		DeviceID:      deviceID,
		BoundAt:       at.UTC(),
		LastSeen:      at.UTC(),
		LastIP:        optional(seen.IP),
		LastUserAgent: optional(seen.UserAgent),
		LastEndpoint:  seen.Endpoint,
	}
	s.bindings[licenseKey] = b
	return &b, true, nil
}

func (s *Store) TouchBinding(_ context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	b, ok := s.bindings[licenseKey]
	if !ok || b.DeviceID != deviceID {
		return repository.ErrNotFound
	}
	b.LastSeen = seen.At.UTC()
	b.LastIP = optional(seen.IP)
	b.LastUserAgent = optional(seen.UserAgent)
	b.LastEndpoint = seen.Endpoint
	s.bindings[licenseKey] = b
	return nil
}

func (s *Store) GetActivePolicy(context.Context) (*repository.VersionPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var best *repository.VersionPolicy
	for i := range s.policies {
		p := &s.policies[i]
		if !p.Active {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) ||
			(p.CreatedAt.Equal(best.CreatedAt) && p.ID > best.ID) {
			best = p
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) SetActivePolicy(_ context.Context, in repository.SetPolicyInput) (*repository.VersionPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for i := range s.policies {
		s.policies[i].Active = false
	}
	s.nextID++
	p := repository.VersionPolicy{
		ID:             s.nextID,
		MinimumVersion: in.MinimumVersion,
		CurrentVersion: in.CurrentVersion,
		DownloadURL:    in.DownloadURL,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	}
	s.policies = append(s.policies, p)
	return &p, nil
}

func (s *Store) InsertUsageEvent(_ context.Context, ev repository.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.failUsage != nil {
		return s.failUsage
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}
	s.usage = append(s.usage, ev)
	return nil
}

// UsageEvents devuelve una copia de los eventos registrados.
func (s *Store) UsageEvents() []repository.UsageEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.UsageEvent, len(s.usage))
	copy(out, s.usage)
	return out
}

// Fail configura (o limpia con nil) un error para todas las operaciones.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

// FailUsageWrites configura un error solo para la telemetría.
func (s *Store) FailUsageWrites(err error) {
	s.mu.Lock()
	s.failUsage = err
	s.mu.Unlock()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
