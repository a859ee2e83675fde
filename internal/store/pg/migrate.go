package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/licensegate/internal/observability/logger"
	migrations "github.com/dropDatabas3/licensegate/migrations/postgres"
)

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Formato de archivo: {version}_{name}.sql (ej: 0001_licenses.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations lee las migraciones de fsys ordenadas por versión.
func ParseMigrations(fsys fs.FS) ([]Migration, error) {
	var out []Migration
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := migrationFilePattern.FindStringSubmatch(path.Base(p))
		if m == nil {
			return nil
		}
		version, _ := strconv.Atoi(m[1])
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		out = append(out, Migration{Version: version, Name: m[2], SQL: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate aplica las migraciones embebidas que falten.
func (s *Store) Migrate(ctx context.Context) (*MigrationResult, error) {
	return s.MigrateFS(ctx, migrations.FS)
}

// MigrateFS aplica las migraciones de fsys que falten, cada una en su
// propia transacción junto con su registro en _migrations.
func (s *Store) MigrateFS(ctx context.Context, fsys fs.FS) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		version INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMPTZ DEFAULT NOW()
	)`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	list, err := ParseMigrations(fsys)
	if err != nil {
		return nil, fmt.Errorf("parsing migrations: %w", err)
	}

	log := logger.L().With(logger.Component("store.pg"), logger.Op("migrate"))
	for _, mig := range list {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := s.applyMigration(ctx, mig); err != nil {
			return res, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		log.Info("migration_applied", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *Store) applyMigration(ctx context.Context, mig Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}
