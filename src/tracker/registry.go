package tracker

import "context"

// streamHandle owns the cancellation of one asset stream.
type streamHandle struct {
	symbol string
	ctx    context.Context
	cancel context.CancelFunc
}

// subscriptionRegistry maps each watched symbol to its live handle.
// Callers hold the tracker lock.
type subscriptionRegistry struct {
	handles map[string]*streamHandle
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{handles: make(map[string]*streamHandle)}
}

func (r *subscriptionRegistry) register(h *streamHandle) {
	r.handles[h.symbol] = h
}

// cancelAndDelete cancels before deleting so no window exists where a
// removed symbol still has a running, unregistered stream.
func (r *subscriptionRegistry) cancelAndDelete(symbol string) bool {
	h, ok := r.handles[symbol]
	if !ok {
		return false
	}
	h.cancel()
	delete(r.handles, symbol)
	return true
}

func (r *subscriptionRegistry) isCurrent(h *streamHandle) bool {
	return r.handles[h.symbol] == h
}

func (r *subscriptionRegistry) cancelAll() {
	for symbol, h := range r.handles {
		h.cancel()
		delete(r.handles, symbol)
	}
}

func (r *subscriptionRegistry) len() int {
	return len(r.handles)
}
