package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS price_history (
	id            BIGSERIAL PRIMARY KEY,
	source        TEXT             NOT NULL,
	ts_ms         BIGINT           NOT NULL,
	price_usd     DOUBLE PRECISION NOT NULL,
	price_native  DOUBLE PRECISION,
	volume_24h    DOUBLE PRECISION,
	liquidity_usd DOUBLE PRECISION,
	high_24h      DOUBLE PRECISION,
	low_24h       DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_price_source_ts ON price_history(source, ts_ms DESC);
`

// Postgres is the client-server backend, sharing the logical schema with the
// SQLite backend so query results are byte-identical for identical inputs.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres connect: %v", types.ErrStorageUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping: %v", types.ErrStorageUnavailable, err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Append(ctx context.Context, rec types.PriceRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: postgres begin: %v", types.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO price_history
		(source, ts_ms, price_usd, price_native, volume_24h, liquidity_usd, high_24h, low_24h)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(rec.Source),
		rec.Timestamp.UTC().UnixMilli(),
		rec.PriceUSD,
		rec.PriceNative,
		rec.Volume24h,
		rec.LiquidityUSD,
		rec.High24h,
		rec.Low24h,
	)
	if err != nil {
		return fmt.Errorf("%w: postgres insert: %v", types.ErrWriteFailed, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: postgres commit: %v", types.ErrWriteFailed, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, source types.Source, since time.Time, limit int) ([]types.PriceRecord, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", types.ErrInvalidRecord, source)
	}
	limit = clampLimit(limit)

	rows, err := p.pool.Query(ctx, `
		SELECT source, ts_ms, price_usd, price_native, volume_24h, liquidity_usd, high_24h, low_24h
		FROM price_history
		WHERE source = $1 AND ts_ms >= $2
		ORDER BY ts_ms DESC, id DESC
		LIMIT $3`,
		string(source), since.UTC().UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres query: %v", types.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make([]types.PriceRecord, 0, limit)
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: postgres rows: %v", types.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (p *Postgres) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM price_history WHERE ts_ms < $1`, olderThan.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: postgres prune: %v", types.ErrWriteFailed, err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPgRecord(rows pgx.Rows) (types.PriceRecord, error) {
	var (
		src  string
		tsMs int64
		rec  types.PriceRecord
	)
	err := rows.Scan(&src, &tsMs, &rec.PriceUSD,
		&rec.PriceNative, &rec.Volume24h, &rec.LiquidityUSD, &rec.High24h, &rec.Low24h)
	if err != nil {
		return types.PriceRecord{}, err
	}
	rec.Source = types.Source(src)
	rec.Timestamp = time.UnixMilli(tsMs).UTC()
	return rec, nil
}

var _ Store = (*Postgres)(nil)
