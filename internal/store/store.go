package store

import (
	"context"
	"embed"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"app/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store owns the database pool and its readiness state. The pool is created
// eagerly but the connection is established in the background: webhooks and
// other requests can arrive before the database answers, and gated handlers
// must return a retryable 503 until Ready reports true.
type Store struct {
	Pool   *pgxpool.Pool
	dsn    string
	logger zerolog.Logger
	ready  atomic.Bool
}

// New builds the pool without touching the network.
func New(cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, err
	}

	return &Store{
		Pool:   pool,
		dsn:    dsn,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Connect starts the background connect-and-migrate loop.
func (s *Store) Connect(ctx context.Context) {
	go s.connectLoop(ctx)
}

// Ready reports whether the database is connected and migrated.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) connectLoop(ctx context.Context) {
	backoff := time.Second
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.Pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		s.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("Database not reachable yet")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}

	if err := s.runMigrations(); err != nil {
		// Stay not-ready: serving requests against a half-migrated schema is
		// worse than returning 503 until an operator intervenes.
		s.logger.Error().Err(err).Msg("Failed to run migrations")
		return
	}

	s.ready.Store(true)
	s.logger.Info().Msg("Database connection successful")
}

func (s *Store) runMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	url := s.dsn
	if strings.HasPrefix(url, "postgres://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgres://")
	} else if strings.HasPrefix(url, "postgresql://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgresql://")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
