package types

import "errors"

// Tagged error kinds. Callers branch with errors.Is, never by message text.
var (
	// ErrUpstreamUnavailable: network/HTTP failure at a venue. Retryable;
	// the tracker skips the cycle and keeps the previous snapshot.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse: required fields absent or non-numeric.
	// Non-retryable for the cycle; nothing is persisted.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrReserveOrdering: a pool's reserve pair could not be unambiguously
	// matched to (quote, base) by asset address. Raised instead of guessing:
	// swapped reserves produce prices off by orders of magnitude.
	ErrReserveOrdering = errors.New("ambiguous reserve ordering")

	// ErrStaleCrossRate: the quote-asset/USD rate is older than the
	// configured freshness bound; the derived USD price is skipped.
	ErrStaleCrossRate = errors.New("stale cross rate")

	// ErrWriteFailed: store write rolled back; the observation is surfaced
	// to the caller, never silently dropped.
	ErrWriteFailed = errors.New("store write failed")

	// ErrStorageUnavailable: backend unreachable; reads degrade to
	// cache-only where possible.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidRecord: record rejected before persistence (price_usd <= 0,
	// unknown source).
	ErrInvalidRecord = errors.New("invalid price record")
)
