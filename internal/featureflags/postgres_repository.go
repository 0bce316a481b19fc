package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectFlagsSQL = `SELECT key, value, reason, updated_at FROM feature_flags`

	upsertFlagSQL = `
		INSERT INTO feature_flags (key, value, reason, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`
)

// PostgresRepository stores overrides in the feature_flags table next to
// the fleet records.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	flag, err := scanFlag(r.pool.QueryRow(ctx, selectFlagsSQL+` WHERE key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	return flag, err
}

func (r *PostgresRepository) ListFlags(ctx context.Context) ([]*Flag, error) {
	rows, err := r.pool.Query(ctx, selectFlagsSQL+` ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []*Flag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func (r *PostgresRepository) SaveFlags(ctx context.Context, flags []*Flag) error {
	batch := &pgx.Batch{}
	for _, flag := range flags {
		value, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encode flag %s: %w", flag.Key, err)
		}
		batch.Queue(upsertFlagSQL, flag.Key, value, flag.Reason, flag.UpdatedAt)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanFlag(row pgx.Row) (*Flag, error) {
	var (
		flag  Flag
		value []byte
	)
	if err := row.Scan(&flag.Key, &value, &flag.Reason, &flag.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", flag.Key, err)
	}
	return &flag, nil
}

var _ Repository = (*PostgresRepository)(nil)
