package mercado

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
	"crypto-tracker/src/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultAPIBase         = "https://www.mercadobitcoin.net/api"
	DefaultRefreshInterval = 30 * time.Second
	DefaultFetchTimeout    = time.Minute
)

type cacheEntry struct {
	ticker   models.MTicker
	storedAt time.Time
}

// -----------------------------------------------------------------------------

// TickerClient fetches Mercado Bitcoin tickers with a per-symbol cache.
type TickerClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	apiBase      string
	cacheTTL     time.Duration
	interval     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	group   singleflight.Group
	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
}

// -----------------------------------------------------------------------------

func NewTickerClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *TickerClient {
	c := &TickerClient{
		Config:   cfg,
		Network:  netMgr,
		Logger:       logger.NewLogger(cfg, "TickerClient"),
		apiBase:      DefaultAPIBase,
		interval:     DefaultRefreshInterval,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		cache:        make(map[string]cacheEntry),
	}

	if cfg != nil {
		if base := strings.TrimRight(strings.TrimSpace(cfg.Ticker.APIBase), "/"); base != "" {
			c.apiBase = base
		}
		if cfg.Ticker.RefreshIntervalMs > 0 {
			c.interval = cfg.RefreshInterval()
		}
		c.cacheTTL = cfg.CacheTTL()

		// Bound for one shared fetch: every attempt timing out plus the delays
		attempts := time.Duration(cfg.Network.MaxRetries + 1)
		if budget := attempts * (cfg.RequestTimeout() + cfg.RetryDelay()); budget > 0 {
			c.fetchTimeout = budget
		}
	}
	return c
}

// -----------------------------------------------------------------------------

func normalize(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", helpers.NewInvalidArgumentError("symbol must be a non-empty string")
	}
	return s, nil
}

// TickerURL is the endpoint polled for symbol.
func (c *TickerClient) TickerURL(symbol string) string {
	return fmt.Sprintf("%s/%s/ticker", c.apiBase, strings.ToUpper(symbol))
}

// -----------------------------------------------------------------------------

// FetchTicker returns the latest ticker for symbol. A failed fetch is not an
// error: it yields a degraded zero ticker stamped with the current time.
// When ctx ends before the ticker arrives, ctx.Err() is returned.
func (c *TickerClient) FetchTicker(ctx context.Context, symbol string, useCache bool) (models.MTicker, error) {
	sym, err := normalize(symbol)
	if err != nil {
		return models.MTicker{}, err
	}

	if useCache {
		if t, ok := c.cached(sym); ok {
			return t, nil
		}
	}

	// Concurrent callers for one symbol share the request. It is detached from
	// the caller that started it, so each caller only waits on its own ctx.
	ch := c.group.DoChan(sym, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetchFresh(fetchCtx, sym), nil
	})

	select {
	case res := <-ch:
		return res.Val.(models.MTicker), nil
	case <-ctx.Done():
		return models.MTicker{}, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (c *TickerClient) fetchFresh(ctx context.Context, sym string) models.MTicker {
	ctx, span := tracing.StartSpan(ctx, "mercado.fetch_ticker",
		trace.WithAttributes(attribute.String("ticker.symbol", sym)))
	defer span.End()

	ticker, err := c.request(ctx, sym)
	if err != nil {
		c.Logger.WithContext(ctx).Error("Failed to load ticker for %s: %v", sym, err)
		var terminal *helpers.TerminalFetchFailure
		if errors.As(err, &terminal) {
			tracing.RecordFailure(span, err, attribute.Int("ticker.attempts", terminal.Attempts))
		} else {
			tracing.RecordFailure(span, err)
		}
		return models.FallbackTicker(c.now())
	}

	c.cacheMu.Lock()
	c.cache[sym] = cacheEntry{ticker: ticker, storedAt: c.now()}
	c.cacheMu.Unlock()

	span.SetAttributes(attribute.Int64("ticker.date", ticker.Date))
	return ticker
}

// -----------------------------------------------------------------------------

// request decodes inside the network retry loop, so a malformed body is
// retried like a failed request.
func (c *TickerClient) request(ctx context.Context, sym string) (models.MTicker, error) {
	var ticker models.MTicker
	_, err := c.Network.GetValidated(ctx, c.TickerURL(sym), nil, func(body []byte) error {
		var resp models.MTickerResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("json unmarshal failed: %w", err)
		}
		t, err := resp.ToTicker()
		if err != nil {
			return err
		}
		ticker = t
		return nil
	})
	if err != nil {
		return models.MTicker{}, err
	}
	return ticker, nil
}

// -----------------------------------------------------------------------------

func (c *TickerClient) cached(sym string) (models.MTicker, bool) {
	c.cacheMu.RLock()
	entry, ok := c.cache[sym]
	c.cacheMu.RUnlock()

	if !ok {
		return models.MTicker{}, false
	}
	if c.cacheTTL > 0 && c.now().Sub(entry.storedAt) > c.cacheTTL {
		return models.MTicker{}, false
	}
	return entry.ticker, true
}

// Invalidate drops the cached ticker for symbol and detaches any in-flight
// request, so later callers start a fresh one.
func (c *TickerClient) Invalidate(symbol string) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	c.cacheMu.Lock()
	delete(c.cache, sym)
	c.cacheMu.Unlock()
	c.group.Forget(sym)
}

// -----------------------------------------------------------------------------

// StreamTicker polls symbol every interval, the first poll immediately, and
// sends a ticker only when its date moved. The channel closes once ctx ends.
func (c *TickerClient) StreamTicker(ctx context.Context, symbol string, interval time.Duration) (<-chan models.MTicker, error) {
	sym, err := normalize(symbol)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = c.interval
	}

	out := make(chan models.MTicker)
	go c.runStream(ctx, sym, interval, out)
	return out, nil
}

// -----------------------------------------------------------------------------

func (c *TickerClient) runStream(ctx context.Context, sym string, interval time.Duration, out chan<- models.MTicker) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastDate int64
	emitted := false

	for {
		t, _ := c.FetchTicker(ctx, sym, false)
		if ctx.Err() != nil {
			return
		}

		if !emitted || t.Date != lastDate {
			select {
			case out <- t:
				emitted = true
				lastDate = t.Date
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
