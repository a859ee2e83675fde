package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

// GetActivePolicy ordena por created_at e id aunque el índice parcial ya
// garantiza una sola activa; así datos viejos resuelven igual siempre.
func (s *Store) GetActivePolicy(ctx context.Context) (*repository.VersionPolicy, error) {
	const q = `SELECT id, minimum_version, current_version, download_url, active, created_at
		FROM version_policy
		WHERE active
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		p   repository.VersionPolicy
		url sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&p.ID, &p.MinimumVersion, &p.CurrentVersion, &url, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get active policy: %w", err)
	}
	p.DownloadURL = strPtr(url)
	return &p, nil
}

func (s *Store) SetActivePolicy(ctx context.Context, in repository.SetPolicyInput) (*repository.VersionPolicy, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE version_policy SET active = FALSE WHERE active`); err != nil {
		return nil, fmt.Errorf("pg: deactivate policy: %w", err)
	}

	var url sql.NullString
	if in.DownloadURL != nil {
		url = nullStr(*in.DownloadURL)
	}
	p := repository.VersionPolicy{
		MinimumVersion: in.MinimumVersion,
		CurrentVersion: in.CurrentVersion,
		DownloadURL:    in.DownloadURL,
		Active:         true,
	}
	const ins = `INSERT INTO version_policy (minimum_version, current_version, download_url, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, ins, in.MinimumVersion, in.CurrentVersion, url).Scan(&p.ID, &p.CreatedAt); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: insert policy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pg: commit: %w", err)
	}
	return &p, nil
}
