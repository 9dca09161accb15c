package dictionary

import (
	"context"
	"sync"
)

// pendingFetch is an outstanding gateway request for one code.
// entries is written once before done is closed.
type pendingFetch struct {
	done    chan struct{}
	entries []Entry
}

func (p *pendingFetch) wait(ctx context.Context) ([]Entry, error) {
	select {
	case <-p.done:
		return cloneEntries(p.entries), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// inflight tracks pending fetches by code. Single and batch fetches share it,
// so a code is never requested twice at the same time.
type inflight struct {
	mu    sync.Mutex
	calls map[string]*pendingFetch
}

func newInflight() *inflight {
	return &inflight{
		calls: make(map[string]*pendingFetch),
	}
}

// begin returns the pending fetch of a code. owner is true when the caller
// created it and must call complete.
func (r *inflight) begin(code string) (call *pendingFetch, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if call, ok := r.calls[code]; ok {
		return call, false
	}
	call = &pendingFetch{done: make(chan struct{})}
	r.calls[code] = call
	return call, true
}

func (r *inflight) complete(code string, call *pendingFetch, entries []Entry) {
	r.mu.Lock()
	if r.calls[code] == call {
		delete(r.calls, code)
	}
	r.mu.Unlock()

	call.entries = entries
	close(call.done)
}
