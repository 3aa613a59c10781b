package interfaces

import (
	"context"
	"time"

	"crypto-tracker/src/models"
)

// -----------------------------------------------------------------------------
// ITickerSource fetches ticker snapshots for one asset symbol.
// -----------------------------------------------------------------------------

type ITickerSource interface {

	// FetchTicker returns the latest snapshot. Only an empty symbol or an ended
	// ctx yields an error; fetch failures come back as a degraded fallback ticker.
	FetchTicker(ctx context.Context, symbol string, useCache bool) (models.MTicker, error)

	// -----------------------------------------------------------------------------

	// StreamTicker polls every interval, starting immediately, and delivers
	// only snapshots whose date differs from the previous one.
	// The channel is closed when ctx is cancelled.
	StreamTicker(ctx context.Context, symbol string, interval time.Duration) (<-chan models.MTicker, error)
}
