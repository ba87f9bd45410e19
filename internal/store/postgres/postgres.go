// Package postgres stores profiles and jobs in PostgreSQL with pgvector.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/logger"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const (
	profileColumns = `id, title, bio, location, industry_focus, embedding, updated_at`
	jobColumns     = `id, title, description, requirements, location, status, region, updated_at`
)

// Config configures the connection pool.
type Config struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max-conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// Store implements the profile and job stores on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool, registers the vector type on every connection and
// optionally applies the embedded schema.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	s := &Store{logger: logger.WithFields(log)}

	if cfg.Migrate {
		// The vector type must exist before AfterConnect can register it.
		if err := migrate(ctx, poolCfg.ConnConfig); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s.pool = pool
	s.logger.Info("postgres store connected", zap.String("host", poolCfg.ConnConfig.Host))
	return s, nil
}

func migrate(ctx context.Context, connCfg *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		sql, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY updated_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	return j, nil
}

func (s *Store) ListOpenJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE lower(status) = $1 ORDER BY updated_at DESC, id LIMIT $2`,
		domain.JobStatusOpen, limit)
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// SaveProfile upserts a profile including its embedding.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	var vec *pgvector.Vector
	if p.Embedding.Valid() {
		v := pgvector.NewVector(p.Embedding)
		vec = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			bio = EXCLUDED.bio,
			location = EXCLUDED.location,
			industry_focus = EXCLUDED.industry_focus,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Title, p.Bio, p.Location, p.IndustryFocus, vec, stamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save profile %q: %w", p.ID, err)
	}
	return nil
}

// SaveJob upserts a job.
func (s *Store) SaveJob(ctx context.Context, j domain.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			location = EXCLUDED.location,
			status = EXCLUDED.status,
			region = EXCLUDED.region,
			updated_at = EXCLUDED.updated_at`,
		j.ID, j.Title, j.Description, j.Requirements, j.Location, j.Status, j.Region, stamp(j.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save job %q: %w", j.ID, err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var vec *pgvector.Vector
	if err := row.Scan(&p.ID, &p.Title, &p.Bio, &p.Location, &p.IndustryFocus, &vec, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		p.Embedding = domain.Embedding(vec.Slice())
	}
	return &p, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	if err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Requirements, &j.Location, &j.Status, &j.Region, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
