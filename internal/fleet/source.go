package fleet

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/database"
)

// Record sources.
const (
	SourceMemory   = "memory"
	SourcePostgres = "postgres"
)

// SourceConfig selects where fleet records are read from.
type SourceConfig struct {
	// Kind is SourceMemory (default) or SourcePostgres.
	Kind string

	// Fixture is a YAML or JSON file loaded into the in-memory store.
	Fixture string

	// Migrate applies the schema after connecting to Postgres.
	Migrate bool

	Database database.Config
}

// SourceConfigFromEnv reads DATA_SOURCE, FIXTURE, DB_MIGRATE and the DB_*
// connection variables. The database variables are only checked for the
// postgres source.
func SourceConfigFromEnv() (SourceConfig, error) {
	cfg := SourceConfig{
		Kind:    os.Getenv("DATA_SOURCE"),
		Fixture: os.Getenv("FIXTURE"),
		Migrate: os.Getenv("DB_MIGRATE") == "true",
	}
	if cfg.Kind != SourcePostgres {
		return cfg, nil
	}

	db, err := database.ConfigFromEnv()
	if err != nil {
		return SourceConfig{}, fmt.Errorf("database config: %w", err)
	}
	cfg.Database = db
	return cfg, nil
}

// Source is an opened record source.
type Source struct {
	Repository Repository

	// Pool is nil for the in-memory source.
	Pool *pgxpool.Pool
}

// Close releases the connection pool, if any.
func (s *Source) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenSource opens the configured record source.
func OpenSource(ctx context.Context, cfg SourceConfig, log zerolog.Logger) (*Source, error) {
	switch cfg.Kind {
	case "", SourceMemory:
		repo := NewInMemoryRepository()
		if cfg.Fixture == "" {
			log.Warn().Msg("no fixture configured, serving an empty fleet")
			return &Source{Repository: repo}, nil
		}

		records, err := LoadFixtureFile(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		repo.Load(records)
		log.Info().
			Str("fixture", cfg.Fixture).
			Int("vehicles", len(records.Vehicles)).
			Int("trailers", len(records.Trailers)).
			Int("drivers", len(records.Drivers)).
			Int("documents", len(records.Documents)).
			Msg("fleet fixture loaded")
		return &Source{Repository: repo}, nil

	case SourcePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("dsn", cfg.Database.Redacted()).
			Int32("max_conns", cfg.Database.MaxConns).
			Msg("database connected")

		if cfg.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("database schema applied")
		}
		return &Source{Repository: NewPostgresRepository(pool), Pool: pool}, nil

	default:
		return nil, fmt.Errorf("unknown data source %q (want %s or %s)", cfg.Kind, SourceMemory, SourcePostgres)
	}
}
