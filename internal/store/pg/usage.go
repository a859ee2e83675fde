package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
)

func (s *Store) InsertUsageEvent(ctx context.Context, ev repository.UsageEvent) error {
	const q = `INSERT INTO usage_event
		(id, fingerprint, device_id, endpoint, outcome, ip, user_agent, client_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, q,
		ev.ID, ev.Fingerprint, ev.DeviceID, ev.Endpoint, ev.Outcome,
		nullStr(ev.IP), nullStr(ev.UserAgent), ev.ClientVersion, ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("pg: insert usage event: %w", err)
	}
	return nil
}
