package tracker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"
)

// fakeStream forwards tickers pushed by the test into the tracker.
type fakeStream struct {
	in  chan models.MTicker
	ctx context.Context
}

type fakeSource struct {
	mu           sync.Mutex
	streams      map[string][]*fakeStream
	invalidated  []string
	ignoreCancel bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{streams: make(map[string][]*fakeStream)}
}

func (f *fakeSource) FetchTicker(ctx context.Context, symbol string, useCache bool) (models.MTicker, error) {
	return models.MTicker{}, errors.New("not used")
}

func (f *fakeSource) StreamTicker(ctx context.Context, symbol string, interval time.Duration) (<-chan models.MTicker, error) {
	if symbol == "" {
		return nil, helpers.NewInvalidArgumentError("symbol must be a non-empty string")
	}

	s := &fakeStream{in: make(chan models.MTicker, 8), ctx: ctx}
	out := make(chan models.MTicker)
	ignore := f.ignoreCancel

	go func() {
		defer close(out)
		for {
			if ignore {
				v, ok := <-s.in
				if !ok {
					return
				}
				out <- v
				continue
			}
			select {
			case v := <-s.in:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	f.mu.Lock()
	f.streams[symbol] = append(f.streams[symbol], s)
	f.mu.Unlock()
	return out, nil
}

func (f *fakeSource) Invalidate(symbol string) {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, symbol)
	f.mu.Unlock()
}

func (f *fakeSource) stream(symbol string) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.streams[symbol]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (f *fakeSource) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams[symbol])
}

func newTestTracker(src *fakeSource) *Tracker {
	return New(nil, src, nil, logger.NewLoggerWithWriter(nil, "TrackerTest", io.Discard))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

// -----------------------------------------------------------------------------

func TestAddThenRemoveLeavesNothing(t *testing.T) {
	src := newFakeSource()
	tr := newTestTracker(src)
	defer tr.Dispose()

	if !tr.AddAsset(" btc ") {
		t.Fatal("Expected BTC to be added")
	}
	if tr.ActiveStreams() != 1 {
		t.Fatalf("Expected 1 active stream, got %d", tr.ActiveStreams())
	}

	if !tr.RemoveAsset("BTC") {
		t.Fatal("Expected BTC to be removed")
	}
	if tr.ActiveStreams() != 0 {
		t.Errorf("Expected 0 active streams, got %d", tr.ActiveStreams())
	}
	if _, ok := tr.Asset("BTC"); ok {
		t.Errorf("Expected no stored entry for BTC")
	}
	if len(tr.Symbols()) != 0 {
		t.Errorf("Expected empty watch list, got %v", tr.Symbols())
	}
	if src.stream("BTC").ctx.Err() == nil {
		t.Errorf("Expected stream context to be cancelled")
	}
	if len(src.invalidated) != 1 || src.invalidated[0] != "BTC" {
		t.Errorf("Expected cache invalidation for BTC, got %v", src.invalidated)
	}

	if tr.RemoveAsset("BTC") {
		t.Errorf("Expected second remove to be a no-op")
	}
}

func TestAddAssetIsIdempotent(t *testing.T) {
	src := newFakeSource()
	tr := newTestTracker(src)
	defer tr.Dispose()

	tr.AddAsset("eth")
	if tr.AddAsset("ETH") {
		t.Errorf("Expected re-adding to be a no-op")
	}
	if tr.AddAsset("   ") {
		t.Errorf("Expected empty symbol to be ignored")
	}

	if got := tr.Symbols(); len(got) != 1 || got[0] != "ETH" {
		t.Errorf("Expected [ETH], got %v", got)
	}
	if src.count("ETH") != 1 {
		t.Errorf("Expected one stream, got %d", src.count("ETH"))
	}
}

func TestSymbolsKeepInsertionOrder(t *testing.T) {
	tr := newTestTracker(newFakeSource())
	defer tr.Dispose()

	for _, s := range []string{"sol", "btc", "ada"} {
		tr.AddAsset(s)
	}
	tr.RemoveAsset("btc")
	tr.AddAsset("doge")

	want := []string{"SOL", "ADA", "DOGE"}
	got := tr.Symbols()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}

func TestEmissionsReplaceTicker(t *testing.T) {
	src := newFakeSource()
	tr := newTestTracker(src)
	defer tr.Dispose()

	tr.AddAsset("BTC")
	view, _ := tr.Asset("BTC")
	if !view.Loading || view.Ticker != nil {
		t.Fatalf("Expected pending asset, got %+v", view)
	}
	if !tr.Snapshot().Loading {
		t.Errorf("Expected global loading while an asset has no data")
	}

	src.stream("BTC").in <- models.MTicker{Buy: "1", Sell: "2", High: "100", Low: "80", Date: 100}
	waitFor(t, func() bool {
		v, _ := tr.Asset("BTC")
		return v.Ticker != nil
	})

	view, _ = tr.Asset("BTC")
	if view.Loading || view.Error != "" || view.Variance != 25 {
		t.Errorf("Unexpected view %+v", view)
	}
	if view.Ticker.ObservedAt().UnixMilli() != 100000 {
		t.Errorf("Expected observedAt 100000ms, got %d", view.Ticker.ObservedAt().UnixMilli())
	}
	if tr.Snapshot().Loading {
		t.Errorf("Expected global loading to clear")
	}

	src.stream("BTC").in <- models.MTicker{Buy: "3", Sell: "4", Date: 150}
	waitFor(t, func() bool {
		v, _ := tr.Asset("BTC")
		return v.Ticker.Date == 150
	})
	view, _ = tr.Asset("BTC")
	if view.Ticker.High != "" || view.Variance != 0 {
		t.Errorf("Expected wholesale replacement, got %+v", view.Ticker)
	}
}

func TestDegradedEmissionSetsError(t *testing.T) {
	src := newFakeSource()
	tr := newTestTracker(src)
	defer tr.Dispose()

	tr.AddAsset("ETH")
	src.stream("ETH").in <- models.FallbackTicker(time.Now())
	waitFor(t, func() bool {
		v, _ := tr.Asset("ETH")
		return v.Error != ""
	})

	view, _ := tr.Asset("ETH")
	if view.Error != "failed to load data for ETH" {
		t.Errorf("Unexpected error message %q", view.Error)
	}
	if view.Ticker == nil || view.Ticker.Buy != "0" {
		t.Errorf("Expected zero-valued ticker to be displayed, got %+v", view.Ticker)
	}

	src.stream("ETH").in <- models.MTicker{Buy: "5", Sell: "6", Date: 200}
	waitFor(t, func() bool {
		v, _ := tr.Asset("ETH")
		return v.Error == ""
	})
}

func TestVariance(t *testing.T) {
	src := newFakeSource()
	tr := newTestTracker(src)
	defer tr.Dispose()

	if v := tr.Variance("BTC"); v != 0 {
		t.Errorf("Expected 0 for unwatched symbol, got %v", v)
	}

	tr.AddAsset("BTC")
	if v := tr.Variance("BTC"); v != 0 {
		t.Errorf("Expected 0 without data, got %v", v)
	}

	src.stream("BTC").in <- models.MTicker{High: "100", Low: "80", Date: 1}
	waitFor(t, func() bool { return tr.Variance("BTC") != 0 })
	if v := tr.Variance("btc"); v != 25 {
		t.Errorf("Expected 25, got %v", v)
	}
}

func TestDailyVariance(t *testing.T) {
	cases := []struct {
		name   string
		ticker *models.MTicker
		want   float64
	}{
		{"nil", nil, 0},
		{"no bounds", &models.MTicker{Buy: "1"}, 0},
		{"no low", &models.MTicker{High: "100"}, 0},
		{"no high", &models.MTicker{Low: "80"}, 0},
		{"unparsable", &models.MTicker{High: "abc", Low: "80"}, 0},
		{"zero low", &models.MTicker{High: "10", Low: "0"}, 0},
		{"fallback", &models.MTicker{High: "0", Low: "0"}, 0},
		{"basic", &models.MTicker{High: "100", Low: "80"}, 25},
		{"decimal", &models.MTicker{High: "150000.50", Low: "120000.40"}, 25},
		{"fraction", &models.MTicker{High: "3", Low: "2"}, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DailyVariance(tc.ticker)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLateEmissionAfterRemovalIsDropped(t *testing.T) {
	src := newFakeSource()
	src.ignoreCancel = true
	tr := newTestTracker(src)
	defer tr.Dispose()

	tr.AddAsset("BTC")
	s := src.stream("BTC")
	tr.RemoveAsset("BTC")

	s.in <- models.MTicker{Buy: "1", Sell: "1", Date: 100}
	close(s.in)
	tr.wg.Wait()

	if _, ok := tr.Asset("BTC"); ok {
		t.Errorf("Late emission resurrected BTC")
	}
	if len(tr.Symbols()) != 0 {
		t.Errorf("Expected empty watch list, got %v", tr.Symbols())
	}
}

func TestReAddUsesFreshHandle(t *testing.T) {
	src := newFakeSource()
	src.ignoreCancel = true
	tr := newTestTracker(src)
	defer func() {
		close(src.stream("BTC").in)
		tr.Dispose()
	}()

	tr.AddAsset("BTC")
	old := src.stream("BTC")
	tr.RemoveAsset("BTC")
	tr.AddAsset("BTC")

	old.in <- models.MTicker{Buy: "stale", Date: 1}
	close(old.in)

	src.stream("BTC").in <- models.MTicker{Buy: "fresh", Date: 2}
	waitFor(t, func() bool {
		v, _ := tr.Asset("BTC")
		return v.Ticker != nil
	})
	v, _ := tr.Asset("BTC")
	if v.Ticker.Buy != "fresh" {
		t.Errorf("Expected only the current stream to update, got %+v", v.Ticker)
	}
}

func TestDisposeStopsEverything(t *testing.T) {
	src := newFakeSource()
	src.ignoreCancel = true
	tr := newTestTracker(src)
	tr.Start(context.Background())

	tr.AddAsset("BTC")
	tr.AddAsset("ETH")
	btc := src.stream("BTC")
	eth := src.stream("ETH")

	// A tick already queued when disposal happens
	btc.in <- models.MTicker{Buy: "1", Date: 10}
	close(btc.in)
	close(eth.in)

	tr.Dispose()

	if tr.ActiveStreams() != 0 {
		t.Errorf("Expected 0 active streams, got %d", tr.ActiveStreams())
	}
	if btc.ctx.Err() == nil || eth.ctx.Err() == nil {
		t.Errorf("Expected every stream context to be cancelled")
	}

	drain(tr.Changes())
	before := tr.Snapshot()
	tr.RefreshAll()
	if tr.AddAsset("SOL") {
		t.Errorf("Expected AddAsset after Dispose to be a no-op")
	}
	after := tr.Snapshot()

	if len(after.Symbols) != 0 || len(after.Assets) != 0 {
		t.Errorf("Expected empty state after dispose, got %+v", after)
	}
	if (before.LastRefreshedAt == nil) != (after.LastRefreshedAt == nil) ||
		(before.LastRefreshedAt != nil && !before.LastRefreshedAt.Equal(*after.LastRefreshedAt)) {
		t.Errorf("RefreshAll mutated state after dispose")
	}
	select {
	case <-tr.Changes():
		t.Errorf("Unexpected change notification after dispose")
	default:
	}

	tr.Dispose()
}

func TestStartRefreshesImmediately(t *testing.T) {
	tr := newTestTracker(newFakeSource())
	fixed := time.Unix(1700000000, 0)
	tr.now = func() time.Time { return fixed }

	tr.Start(context.Background())
	defer tr.Dispose()

	waitFor(t, func() bool { return tr.Snapshot().LastRefreshedAt != nil })
	if got := tr.Snapshot().LastRefreshedAt; !got.Equal(fixed) {
		t.Errorf("Expected %v, got %v", fixed, got)
	}
}

// -----------------------------------------------------------------------------

type memoryStore struct {
	mu      sync.Mutex
	symbols []string
	failAdd bool
}

func (m *memoryStore) Initialize() error { return nil }
func (m *memoryStore) Close() error      { return nil }

func (m *memoryStore) LoadSymbols() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.symbols...), nil
}

func (m *memoryStore) AddSymbol(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd {
		return errors.New("disk full")
	}
	m.symbols = append(m.symbols, symbol)
	return nil
}

func (m *memoryStore) RemoveSymbol(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.symbols {
		if s == symbol {
			m.symbols = append(m.symbols[:i], m.symbols[i+1:]...)
			break
		}
	}
	return nil
}

func TestStoreWriteThroughAndRestore(t *testing.T) {
	store := &memoryStore{}
	src := newFakeSource()
	tr := New(nil, src, store, logger.NewLoggerWithWriter(nil, "TrackerTest", io.Discard))

	tr.AddAsset("btc")
	tr.AddAsset("eth")
	tr.RemoveAsset("btc")
	tr.Dispose()

	if len(store.symbols) != 1 || store.symbols[0] != "ETH" {
		t.Fatalf("Expected store [ETH], got %v", store.symbols)
	}

	restored := New(nil, newFakeSource(), store, logger.NewLoggerWithWriter(nil, "TrackerTest", io.Discard))
	defer restored.Dispose()
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := restored.Symbols(); len(got) != 1 || got[0] != "ETH" {
		t.Errorf("Expected restored [ETH], got %v", got)
	}
	if len(store.symbols) != 1 {
		t.Errorf("Restore should not write back, got %v", store.symbols)
	}
}

func TestStoreFailureDoesNotBlockTracker(t *testing.T) {
	store := &memoryStore{failAdd: true}
	tr := New(nil, newFakeSource(), store, logger.NewLoggerWithWriter(nil, "TrackerTest", io.Discard))
	defer tr.Dispose()

	if !tr.AddAsset("ADA") {
		t.Fatal("Expected add to succeed despite store failure")
	}
	if tr.ActiveStreams() != 1 {
		t.Errorf("Expected 1 active stream, got %d", tr.ActiveStreams())
	}
}

func TestStoreFollowsConcurrentAddAndRemove(t *testing.T) {
	store := &memoryStore{}
	src := newFakeSource()
	tr := New(nil, src, store, logger.NewLoggerWithWriter(nil, "TrackerTest", io.Discard))
	defer tr.Dispose()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.AddAsset("BTC")
		}()
		go func() {
			defer wg.Done()
			tr.RemoveAsset("btc")
		}()
	}
	wg.Wait()

	watched := tr.Symbols()
	stored, _ := store.LoadSymbols()
	if len(watched) != len(stored) || (len(stored) == 1 && stored[0] != watched[0]) {
		t.Errorf("Store %v disagrees with watch list %v", stored, watched)
	}
	if len(stored) > 1 {
		t.Errorf("Expected at most one stored symbol, got %v", stored)
	}

	// Every removal of a watched symbol invalidated the source cache first
	src.mu.Lock()
	invalidations := len(src.invalidated)
	src.mu.Unlock()
	if want := src.count("BTC") - len(watched); invalidations != want {
		t.Errorf("Expected %d invalidations, got %d", want, invalidations)
	}
}
