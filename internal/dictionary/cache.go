package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrCacheClosed is returned by operations on a closed cache.
var ErrCacheClosed = errors.New("dictionary cache is closed")

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock  clock.Clock
	policy ExpirationPolicy
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithExpirationPolicy sets how long fetched dictionaries stay fresh.
func WithExpirationPolicy(policy ExpirationPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// Cache resolves dictionary codes through an in-memory Store backed by a remote Gateway.
// At most one gateway request per code is outstanding at any time.
type Cache struct {
	gateway    Gateway
	repository SnapshotRepository
	store      *Store
	clock      clock.Clock
	inflight   *inflight
	metrics    *metricsRecorder

	initOnce sync.Once
	initErr  error
	// restoreFailed stops saving, so that an empty store never replaces a snapshot it could not read.
	restoreFailed atomic.Bool

	persistMu sync.Mutex
	reloads   sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

// NewCache creates a Cache. repository may be nil, in which case nothing is persisted.
func NewCache(gateway Gateway, repository SnapshotRepository, opts ...Option) *Cache {
	o := options{
		clock:  clock.New(),
		policy: ExpirationPolicy{Default: DefaultTTL},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache{
		gateway:    gateway,
		repository: repository,
		store:      NewStore(o.policy, o.clock),
		clock:      o.clock,
		inflight:   newInflight(),
		metrics:    &metricsRecorder{clock: o.clock},
	}
}

// Store returns the underlying store.
func (c *Cache) Store() *Store {
	return c.store
}

// Init seeds the store from the repository. Only the first call loads.
// After a failed load the cache keeps working but is never saved.
func (c *Cache) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		if c.repository == nil {
			return
		}
		snapshot, err := c.repository.Load(ctx)
		if err != nil {
			c.initErr = fmt.Errorf("repository.Load > %w", err)
			c.restoreFailed.Store(true)
			return
		}
		if snapshot == nil {
			return
		}
		c.store.Restore(*snapshot)
		slog.Default().Debug("restored dictionary cache",
			"dictionaries", len(c.store.Codes()),
		)
	})
	return c.initErr
}

// Close waits for detached reloads and writes a final snapshot.
func (c *Cache) Close(ctx context.Context) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	if err := c.Wait(ctx); err != nil {
		return err
	}
	if !c.persistent() {
		return nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.repository.Save(ctx, c.store.Snapshot()); err != nil {
		return fmt.Errorf("repository.Save > %w", err)
	}
	return nil
}

// Wait blocks until every detached reload started by LoadAllDicts has finished.
func (c *Cache) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.reloads.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch returns the entries of a dictionary, requesting them from the gateway
// when no fresh record is cached. Concurrent callers for the same code share
// one request. Failures are logged and yield the stale entries, if any, or an empty list.
func (c *Cache) Fetch(ctx context.Context, code string) []Entry {
	if record, ok := c.freshRecord(code); ok {
		return record.Entries
	}

	call, owner := c.inflight.begin(code)
	if !owner {
		entries, err := call.wait(ctx)
		if err != nil {
			slog.Default().Warn("stopped waiting for a dictionary fetch",
				"code", code,
				"error", err,
			)
			return c.staleEntries(code)
		}
		return entries
	}

	// Another request may have completed between the lookup and begin.
	if record, ok := c.freshRecord(code); ok {
		c.complete(code, call, record.Entries)
		return record.Entries
	}

	c.store.SetLoading(code, true)
	entries, err := c.gateway.FetchDictionary(ctx, code)
	if err != nil {
		slog.Default().Warn("failed to fetch a dictionary",
			"code", code,
			"error", err,
		)
		entries = c.staleEntries(code)
		c.complete(code, call, entries)
		return entries
	}

	record := c.store.Put(code, entries)
	c.complete(code, call, record.Entries)
	c.persist(ctx)
	return record.Entries
}

// FetchBatch requests every code that is not cached yet in a single gateway call.
// Codes that are already being fetched are waited on instead of requested again.
// Codes missing from the response stay uncached.
func (c *Cache) FetchBatch(ctx context.Context, codes []string) {
	owned := make(map[string]*pendingFetch)
	var missing []string
	var waiting []*pendingFetch
	for _, code := range codes {
		if _, ok := owned[code]; ok {
			continue
		}
		if _, ok := c.store.Get(code); ok {
			continue
		}
		call, owner := c.inflight.begin(code)
		if !owner {
			waiting = append(waiting, call)
			continue
		}
		owned[code] = call
		missing = append(missing, code)
	}

	if len(missing) > 0 {
		c.fetchBatch(ctx, missing, owned)
	}
	for _, call := range waiting {
		if _, err := call.wait(ctx); err != nil {
			slog.Default().Warn("stopped waiting for a dictionary fetch",
				"error", err,
			)
			return
		}
	}
}

func (c *Cache) fetchBatch(ctx context.Context, codes []string, owned map[string]*pendingFetch) (map[string][]Entry, error) {
	for code := range owned {
		c.store.SetLoading(code, true)
	}

	result, err := c.gateway.FetchBatch(ctx, codes)
	if err != nil {
		slog.Default().Warn("failed to fetch dictionaries in batch",
			"codes", codes,
			"error", err,
		)
	}
	for code, entries := range result {
		record := c.store.Put(code, entries)
		if call, ok := owned[code]; ok {
			c.complete(code, call, record.Entries)
			delete(owned, code)
		}
	}
	for code, call := range owned {
		c.complete(code, call, []Entry{})
	}
	if len(result) > 0 {
		c.persist(ctx)
	}
	return result, err
}

// FetchIncremental overwrites every dictionary changed since the last checkpoint
// and advances the checkpoint when anything changed. It returns the number of
// dictionaries written. A failure leaves the checkpoint untouched so that the
// next call covers the same window.
func (c *Cache) FetchIncremental(ctx context.Context) int {
	var since *time.Time
	if checkpoint, ok := c.store.Checkpoint(); ok {
		since = &checkpoint
	}

	changes, err := c.gateway.FetchChanges(ctx, since)
	if err != nil {
		slog.Default().Warn("failed to fetch dictionary changes",
			"since", since,
			"error", err,
		)
		return 0
	}
	if len(changes) == 0 {
		return 0
	}

	for code, entries := range changes {
		c.store.Put(code, entries)
	}
	c.store.SetCheckpoint(c.clock.Now())
	c.persist(ctx)
	return len(changes)
}

// LoadAllDicts clears the cache, discovers every dictionary code and reloads
// all of them in one batch. The batch runs in the background and outlives ctx;
// use Wait, Metrics or LoadAllDictsAndWait to observe its completion.
// Only a failure to discover the codes is returned.
func (c *Cache) LoadAllDicts(ctx context.Context) error {
	if c.isClosed() {
		return ErrCacheClosed
	}
	codes, err := c.discover(ctx)
	if err != nil || len(codes) == 0 {
		return err
	}

	// Close waits for reloads registered before it marks the cache closed.
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.reloads.Add(1)
	go func() {
		defer c.reloads.Done()
		_ = c.reload(context.WithoutCancel(ctx), codes)
	}()
	return nil
}

// LoadAllDictsAndWait is LoadAllDicts returning only after the batch has been written.
// A batch failure is also returned.
func (c *Cache) LoadAllDictsAndWait(ctx context.Context) error {
	if c.isClosed() {
		return ErrCacheClosed
	}
	codes, err := c.discover(ctx)
	if err != nil || len(codes) == 0 {
		return err
	}
	return c.reload(ctx, codes)
}

func (c *Cache) discover(ctx context.Context) ([]string, error) {
	c.metrics.reset()
	c.store.Clear()
	c.persist(ctx)

	codes, err := c.gateway.FetchTypes(ctx)
	if err != nil {
		c.metrics.fail([]string{""}, err)
		c.metrics.finish(0)
		return nil, fmt.Errorf("gateway.FetchTypes > %w", err)
	}
	if len(codes) == 0 {
		c.metrics.finish(0)
		return nil, nil
	}
	return codes, nil
}

func (c *Cache) reload(ctx context.Context, codes []string) error {
	owned := make(map[string]*pendingFetch, len(codes))
	waiting := make(map[string]*pendingFetch)
	var requested, waited []string
	for _, code := range codes {
		if _, ok := owned[code]; ok {
			continue
		}
		if _, ok := waiting[code]; ok {
			continue
		}
		call, owner := c.inflight.begin(code)
		if !owner {
			waiting[code] = call
			waited = append(waited, code)
			continue
		}
		owned[code] = call
		requested = append(requested, code)
	}

	var batchErr error
	loaded := 0
	if len(requested) > 0 {
		result, err := c.fetchBatch(ctx, requested, owned)
		if err != nil {
			c.metrics.fail(requested, err)
			batchErr = fmt.Errorf("gateway.FetchBatch > %w", err)
		}
		loaded += len(result)
	}
	// Codes another fetch already requested are counted once that fetch has written them.
	for _, code := range waited {
		if _, err := waiting[code].wait(ctx); err != nil {
			c.metrics.fail([]string{code}, err)
			continue
		}
		if _, ok := c.store.Get(code); ok {
			loaded++
		}
	}
	c.metrics.finish(loaded)
	if batchErr != nil {
		return batchErr
	}

	metrics := c.metrics.snapshot()
	slog.Default().Info("reloaded dictionaries",
		"requested", len(codes),
		"loaded", metrics.SuccessCount,
		"duration", metrics.Duration,
	)
	return nil
}

// Metrics returns the metrics of the most recent full reload.
func (c *Cache) Metrics() LoadMetrics {
	return c.metrics.snapshot()
}

// DictLabel resolves a value of a cached dictionary to its label without fetching.
func (c *Cache) DictLabel(code string, value any) string {
	record, ok := c.store.Get(code)
	if !ok {
		return ResolveLabel(nil, value)
	}
	return ResolveLabel(&record, value)
}

// RemoteLabel asks the gateway for a label, bypassing the cache.
func (c *Cache) RemoteLabel(ctx context.Context, code string, value any) (string, error) {
	label, err := c.gateway.FetchLabel(ctx, code, normalizeValue(value))
	if err != nil {
		return "", fmt.Errorf("gateway.FetchLabel(%s) > %w", code, err)
	}
	return label, nil
}

func (c *Cache) freshRecord(code string) (Record, bool) {
	record, ok := c.store.Get(code)
	if !ok || !c.store.IsFresh(code) {
		return Record{}, false
	}
	return record, true
}

func (c *Cache) staleEntries(code string) []Entry {
	if record, ok := c.store.Get(code); ok {
		return record.Entries
	}
	return []Entry{}
}

func (c *Cache) complete(code string, call *pendingFetch, entries []Entry) {
	c.store.SetLoading(code, false)
	c.inflight.complete(code, call, entries)
}

// persist mirrors the store to the repository. Failures are logged only.
func (c *Cache) persist(ctx context.Context) {
	if !c.persistent() {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if err := c.repository.Save(context.WithoutCancel(ctx), c.store.Snapshot()); err != nil {
		slog.Default().Error("failed to save the dictionary cache",
			"error", err,
		)
	}
}

func (c *Cache) persistent() bool {
	return c.repository != nil && !c.restoreFailed.Load()
}

func (c *Cache) isClosed() bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	return c.closed
}
