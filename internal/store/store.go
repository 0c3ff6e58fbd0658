// Package store persists the append-only price_history log behind two
// interchangeable backends (embedded SQLite and server PostgreSQL) with an
// identical logical schema, so query results match byte for byte.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// HardLimit caps query result size regardless of the caller-supplied limit.
const HardLimit = 5000

// Store is the durable owner of the PriceRecord log. Records are immutable
// once appended; corrections are new records.
type Store interface {
	// Append writes one record inside a scoped transaction. The record is
	// validated first; types.ErrInvalidRecord rejects price_usd <= 0.
	Append(ctx context.Context, rec types.PriceRecord) error

	// Query returns records for source with timestamp >= since, most recent
	// first, at most limit rows (clamped to HardLimit).
	Query(ctx context.Context, source types.Source, since time.Time, limit int) ([]types.PriceRecord, error)

	// Prune deletes records older than olderThan and reports the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}

// clampLimit coerces a caller-supplied limit to a bounded positive integer
// before it reaches any filter predicate.
func clampLimit(limit int) int {
	if limit <= 0 || limit > HardLimit {
		return HardLimit
	}
	return limit
}

// validate rejects records that must never reach persistence.
func validate(rec types.PriceRecord) error {
	if !rec.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", types.ErrInvalidRecord, rec.Source)
	}
	if !(rec.PriceUSD > 0) {
		return fmt.Errorf("%w: price_usd must be positive, got %v", types.ErrInvalidRecord, rec.PriceUSD)
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", types.ErrInvalidRecord)
	}
	return nil
}
