package fetcher

import (
	"context"
	"time"
)

// Status tags the result of one fetch attempt.
type Status int

const (
	// StatusSuccess carries a usable quote.
	StatusSuccess Status = iota
	// StatusRateLimited means upstream asked for a pause before the next attempt.
	StatusRateLimited
	// StatusFailure means no data this tick; the caller retries on its normal cadence.
	StatusFailure
)

// Quote is the normalized top-of-book snapshot for the watched pair.
// Prices are whole rials, truncated toward zero.
type Quote struct {
	Latest   int64
	BestBuy  int64
	BestSell int64
}

// Outcome is the three-way result of one fetch attempt.
type Outcome struct {
	Status  Status
	Quote   Quote
	Backoff time.Duration
}

// Success wraps a quote in a successful outcome.
func Success(q Quote) Outcome { return Outcome{Status: StatusSuccess, Quote: q} }

// RateLimited signals a server-directed pause before the next attempt.
func RateLimited(backoff time.Duration) Outcome {
	return Outcome{Status: StatusRateLimited, Backoff: backoff}
}

// Failure signals "no data this tick".
func Failure() Outcome { return Outcome{Status: StatusFailure} }

// QuoteFetcher retrieves the current quote for the configured pair.
type QuoteFetcher interface {
	Fetch(ctx context.Context) Outcome
}
