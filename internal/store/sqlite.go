package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS price_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source        TEXT    NOT NULL,
	ts_ms         INTEGER NOT NULL,
	price_usd     REAL    NOT NULL,
	price_native  REAL,
	volume_24h    REAL,
	liquidity_usd REAL,
	high_24h      REAL,
	low_24h       REAL
);
CREATE INDEX IF NOT EXISTS idx_price_source_ts ON price_history(source, ts_ms DESC);
`

// SQLite is the embedded file-based backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating parent directories if needed) and migrates the
// database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single writer connection sidesteps SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, rec types.PriceRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: sqlite begin: %v", types.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_history
		(source, ts_ms, price_usd, price_native, volume_24h, liquidity_usd, high_24h, low_24h)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Source),
		rec.Timestamp.UTC().UnixMilli(),
		rec.PriceUSD,
		nullable(rec.PriceNative),
		nullable(rec.Volume24h),
		nullable(rec.LiquidityUSD),
		nullable(rec.High24h),
		nullable(rec.Low24h),
	)
	if err != nil {
		return fmt.Errorf("%w: sqlite insert: %v", types.ErrWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite commit: %v", types.ErrWriteFailed, err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, source types.Source, since time.Time, limit int) ([]types.PriceRecord, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", types.ErrInvalidRecord, source)
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, ts_ms, price_usd, price_native, volume_24h, liquidity_usd, high_24h, low_24h
		FROM price_history
		WHERE source = ? AND ts_ms >= ?
		ORDER BY ts_ms DESC, id DESC
		LIMIT ?`,
		string(source), since.UTC().UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite query: %v", types.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make([]types.PriceRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite rows: %v", types.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (s *SQLite) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE ts_ms < ?`, olderThan.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: sqlite prune: %v", types.ErrWriteFailed, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// rowScanner covers *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (types.PriceRecord, error) {
	var (
		src  string
		tsMs int64
		rec  types.PriceRecord

		native, vol, liq, high, low sql.NullFloat64
	)
	if err := r.Scan(&src, &tsMs, &rec.PriceUSD, &native, &vol, &liq, &high, &low); err != nil {
		return types.PriceRecord{}, err
	}
	rec.Source = types.Source(src)
	rec.Timestamp = time.UnixMilli(tsMs).UTC()
	rec.PriceNative = fromNull(native)
	rec.Volume24h = fromNull(vol)
	rec.LiquidityUSD = fromNull(liq)
	rec.High24h = fromNull(high)
	rec.Low24h = fromNull(low)
	return rec, nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ Store = (*SQLite)(nil)
