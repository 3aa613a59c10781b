package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
)

const DefaultRefreshInterval = 30 * time.Second

// cacheInvalidator is implemented by ticker sources that keep a cache.
type cacheInvalidator interface {
	Invalidate(symbol string)
}

type watchedAsset struct {
	symbol string
	ticker *models.MTicker
	errMsg string
}

// -----------------------------------------------------------------------------

// Tracker owns the watch list and one live ticker stream per watched symbol.
type Tracker struct {
	Source   interfaces.ITickerSource
	Store    interfaces.IWatchlistStore // optional
	Logger   *logger.Logger
	interval time.Duration

	mu              sync.Mutex
	order           []string
	assets          map[string]*watchedAsset
	registry        *subscriptionRegistry
	lastRefreshedAt *time.Time
	loading         bool
	started         bool
	disposed        bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}
	now     func() time.Time
}

// -----------------------------------------------------------------------------

func New(cfg *models.MConfig, source interfaces.ITickerSource, store interfaces.IWatchlistStore, log *logger.Logger) *Tracker {
	interval := DefaultRefreshInterval
	if cfg != nil && cfg.Ticker.RefreshIntervalMs > 0 {
		interval = cfg.RefreshInterval()
	}
	if log == nil {
		log = logger.NewLogger(cfg, "Tracker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		Source:   source,
		Store:    store,
		Logger:   log,
		interval: interval,
		assets:   make(map[string]*watchedAsset),
		registry: newSubscriptionRegistry(),
		ctx:      ctx,
		cancel:   cancel,
		changes:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// NormalizeSymbol trims and upper-cases a user supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// -----------------------------------------------------------------------------

// Start launches the global refresh timer. The first refresh runs immediately.
func (t *Tracker) Start(parent context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || t.disposed {
		return
	}
	t.started = true

	t.wg.Add(1)
	go t.refreshLoop(parent)
}

func (t *Tracker) refreshLoop(parent context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		t.RefreshAll()

		select {
		case <-ticker.C:
		case <-parent.Done():
			return
		case <-t.ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// AddAsset starts watching symbol. It returns false when symbol is empty,
// already watched, or the tracker is disposed.
func (t *Tracker) AddAsset(symbol string) bool {
	return t.add(symbol, true)
}

// add registers symbol. With persist the store write happens under the lock,
// so the store sees adds and removes in the order the tracker applied them.
func (t *Tracker) add(symbol string, persist bool) bool {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return false
	}
	if _, exists := t.assets[sym]; exists {
		return false
	}

	ctx, cancel := context.WithCancel(t.ctx)
	stream, err := t.Source.StreamTicker(ctx, sym, t.interval)
	if err != nil {
		cancel()
		t.Logger.Error("Failed to start stream for %s: %v", sym, err)
		return false
	}

	h := &streamHandle{symbol: sym, ctx: ctx, cancel: cancel}
	t.registry.register(h)
	t.order = append(t.order, sym)
	t.assets[sym] = &watchedAsset{symbol: sym}
	t.loading = true

	t.wg.Add(1)
	go t.consume(h, stream)

	if persist && t.Store != nil {
		if err := t.Store.AddSymbol(sym); err != nil {
			t.Logger.Error("Failed to persist %s: %v", sym, err)
		}
	}

	t.Logger.Info("Watching %s", sym)
	t.notify()
	return true
}

// -----------------------------------------------------------------------------

// consume drains the stream until it closes so Dispose can wait for it.
func (t *Tracker) consume(h *streamHandle, stream <-chan models.MTicker) {
	defer t.wg.Done()

	for ticker := range stream {
		t.apply(h, ticker)
	}
}

func (t *Tracker) apply(h *streamHandle, ticker models.MTicker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Late emissions for removed or replaced handles are dropped
	if t.disposed || h.ctx.Err() != nil || !t.registry.isCurrent(h) {
		return
	}

	asset, ok := t.assets[h.symbol]
	if !ok {
		return
	}

	tk := ticker
	asset.ticker = &tk
	if ticker.Degraded {
		asset.errMsg = fmt.Sprintf("failed to load data for %s", h.symbol)
	} else {
		asset.errMsg = ""
	}

	t.loading = t.anyPendingLocked()
	t.notify()
}

// -----------------------------------------------------------------------------

// RemoveAsset stops watching symbol. Removing an unwatched symbol returns false.
func (t *Tracker) RemoveAsset(symbol string) bool {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return false
	}
	_, watched := t.assets[sym]
	t.registry.cancelAndDelete(sym)
	delete(t.assets, sym)
	for i, s := range t.order {
		if s == sym {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	t.loading = t.anyPendingLocked()
	if !watched {
		return false
	}

	// Same step as the cancel, so a re-add never joins the old stream's request
	if inv, ok := t.Source.(cacheInvalidator); ok {
		inv.Invalidate(sym)
	}
	if t.Store != nil {
		if err := t.Store.RemoveSymbol(sym); err != nil {
			t.Logger.Error("Failed to remove %s from store: %v", sym, err)
		}
	}
	t.Logger.Info("Stopped watching %s", sym)
	t.notify()
	return true
}

// -----------------------------------------------------------------------------

// RefreshAll stamps the refresh time and recomputes the loading flag.
func (t *Tracker) RefreshAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return
	}
	now := t.now()
	t.lastRefreshedAt = &now
	t.loading = t.anyPendingLocked()
	t.notify()
}

func (t *Tracker) anyPendingLocked() bool {
	for _, a := range t.assets {
		if a.ticker == nil {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Restore re-adds the symbols held by the store.
func (t *Tracker) Restore() error {
	if t.Store == nil {
		return nil
	}

	symbols, err := t.Store.LoadSymbols()
	if err != nil {
		return err
	}
	for _, s := range symbols {
		t.add(s, false)
	}
	t.Logger.Info("Restored %d symbols", len(symbols))
	return nil
}

// -----------------------------------------------------------------------------

// Variance of the stored ticker for symbol, 0 without usable data.
func (t *Tracker) Variance(symbol string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	asset, ok := t.assets[NormalizeSymbol(symbol)]
	if !ok {
		return 0
	}
	return DailyVariance(asset.ticker)
}

func (t *Tracker) viewLocked(a *watchedAsset) models.MAssetView {
	view := models.MAssetView{
		Symbol:   a.symbol,
		Loading:  a.ticker == nil,
		Error:    a.errMsg,
		Variance: DailyVariance(a.ticker),
	}
	if a.ticker != nil {
		tk := *a.ticker
		view.Ticker = &tk
	}
	return view
}

// Asset returns the display view of one watched symbol.
func (t *Tracker) Asset(symbol string) (models.MAssetView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.assets[NormalizeSymbol(symbol)]
	if !ok {
		return models.MAssetView{}, false
	}
	return t.viewLocked(a), true
}

// Snapshot copies the whole display state.
func (t *Tracker) Snapshot() *models.MTrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := &models.MTrackerState{
		Type:    "UPDATE",
		Symbols: append([]string{}, t.order...),
		Assets:  make(map[string]models.MAssetView, len(t.assets)),
		Loading: t.loading,
	}
	if t.lastRefreshedAt != nil {
		ts := *t.lastRefreshedAt
		state.LastRefreshedAt = &ts
	}
	for sym, a := range t.assets {
		state.Assets[sym] = t.viewLocked(a)
	}
	return state
}

func (t *Tracker) Symbols() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.order...)
}

// ActiveStreams is the number of live stream handles.
func (t *Tracker) ActiveStreams() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.len()
}

// -----------------------------------------------------------------------------

// Changes is signalled after state mutations. Signals coalesce.
func (t *Tracker) Changes() <-chan struct{} {
	return t.changes
}

func (t *Tracker) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Dispose cancels the refresh timer and every stream, then waits for them.
// No state changes after it returns.
func (t *Tracker) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	t.registry.cancelAll()
	t.cancel()
	t.order = nil
	t.assets = make(map[string]*watchedAsset)
	t.loading = false
	t.mu.Unlock()

	t.wg.Wait()
	t.Logger.Info("Tracker disposed")
}
