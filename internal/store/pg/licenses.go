package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

func (s *Store) GetLicense(ctx context.Context, key string) (*repository.License, error) {
	const q = `SELECT key, revoked, expires_at, created_at FROM license_key WHERE key = $1`

	var (
		l   repository.License
		exp sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&l.Key, &l.Revoked, &exp, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get license: %w", err)
	}
	l.ExpiresAt = timePtr(exp)
	return &l, nil
}

func (s *Store) CreateLicense(ctx context.Context, in repository.CreateLicenseInput) (*repository.License, error) {
	const q = `INSERT INTO license_key (key, expires_at) VALUES ($1, $2) RETURNING created_at`

	var exp sql.NullTime
	if in.ExpiresAt != nil {
		exp = sql.NullTime{Time: *in.ExpiresAt, Valid: true}
	}
	l := repository.License{Key: in.Key, ExpiresAt: in.ExpiresAt}
	if err := s.db.QueryRowContext(ctx, q, in.Key, exp).Scan(&l.CreatedAt); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create license: %w", err)
	}
	return &l, nil
}

func (s *Store) RevokeLicense(ctx context.Context, key string) error {
	const q = `UPDATE license_key SET revoked = TRUE WHERE key = $1`

	res, err := s.db.ExecContext(ctx, q, key)
	if err != nil {
		return fmt.Errorf("pg: revoke license: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pg: revoke license: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
