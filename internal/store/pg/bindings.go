package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

const bindingCols = `license_key, device_id, bound_at, last_seen, last_ip, last_user_agent, last_endpoint`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinding(r rowScanner) (*repository.DeviceBinding, error) {
	var (
		b      repository.DeviceBinding
		ip, ua sql.NullString
	)
	if err := r.Scan(&b.LicenseKey, &b.DeviceID, &b.BoundAt, &b.LastSeen, &ip, &ua, &b.LastEndpoint); err != nil {
		return nil, err
	}
	b.LastIP = strPtr(ip)
	b.LastUserAgent = strPtr(ua)
	return &b, nil
}

func (s *Store) GetBinding(ctx context.Context, licenseKey string) (*repository.DeviceBinding, error) {
	q := `SELECT ` + bindingCols + ` FROM device_binding WHERE license_key = $1`

	b, err := scanBinding(s.db.QueryRowContext(ctx, q, licenseKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get binding: %w", err)
	}
	return b, nil
}

// CreateBindingIfAbsent usa la PK de device_binding como árbitro: con
// ON CONFLICT DO NOTHING solo un INSERT concurrente devuelve fila. El que
// pierde relee el binding del ganador.
func (s *Store) CreateBindingIfAbsent(ctx context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) (*repository.DeviceBinding, bool, error) {
	q := `INSERT INTO device_binding (` + bindingCols + `)
		VALUES ($1, $2, $3, $3, $4, $5, $6)
		ON CONFLICT (license_key) DO NOTHING
		RETURNING ` + bindingCols

	b, err := scanBinding(s.db.QueryRowContext(ctx, q,
		licenseKey, deviceID, seen.At.UTC(), nullStr(seen.IP), nullStr(seen.UserAgent), seen.Endpoint))
	switch {
	case err == nil:
		return b, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// otro request ganó la carrera
	case pgCode(err) == pgForeignKeyViolation:
		return nil, false, repository.ErrNotFound
	default:
		return nil, false, fmt.Errorf("pg: create binding: %w", err)
	}

	winner, err := s.GetBinding(ctx, licenseKey)
	if err != nil {
		return nil, false, err
	}
	return winner, false, nil
}

func (s *Store) TouchBinding(ctx context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) error {
	const q = `UPDATE device_binding
		SET last_seen = $3, last_ip = $4, last_user_agent = $5, last_endpoint = $6
		WHERE license_key = $1 AND device_id = $2`

	res, err := s.db.ExecContext(ctx, q,
		licenseKey, deviceID, seen.At.UTC(), nullStr(seen.IP), nullStr(seen.UserAgent), seen.Endpoint)
	if err != nil {
		return fmt.Errorf("pg: touch binding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
