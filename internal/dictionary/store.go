package dictionary

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Store is the in-memory map of dictionary records and loading flags.
// All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	records    map[string]Record
	loading    map[string]bool
	checkpoint *time.Time

	policy ExpirationPolicy
	clock  clock.Clock
}

// NewStore creates an empty Store.
func NewStore(policy ExpirationPolicy, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		records: make(map[string]Record),
		loading: make(map[string]bool),
		policy:  policy,
		clock:   clk,
	}
}

// Get returns the record of a dictionary code.
func (s *Store) Get(code string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[code]
	if !ok {
		return Record{}, false
	}
	return record.clone(), true
}

// IsFresh reports whether a record exists and is younger than the policy for its code.
func (s *Store) IsFresh(code string) bool {
	s.mu.RLock()
	record, ok := s.records[code]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return s.clock.Since(record.FetchedAt) < s.policy.Duration(code)
}

// Put replaces the record of a code with a copy of the given entries stamped with the current time.
// The returned record does not share its entries with the store.
func (s *Store) Put(code string, entries []Entry) Record {
	record := Record{
		DictionaryCode: code,
		Entries:        cloneEntries(entries),
		FetchedAt:      s.clock.Now(),
	}

	s.mu.Lock()
	s.records[code] = record
	s.mu.Unlock()
	return record.clone()
}

// Clear removes every record and the sync checkpoint.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	s.checkpoint = nil
}

// SetLoading marks or unmarks a code as having an outstanding fetch.
func (s *Store) SetLoading(code string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loading {
		s.loading[code] = true
		return
	}
	delete(s.loading, code)
}

// IsLoading reports whether a fetch for the code is outstanding.
func (s *Store) IsLoading(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading[code]
}

// Checkpoint returns the time of the last successful incremental sync.
func (s *Store) Checkpoint() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checkpoint == nil {
		return time.Time{}, false
	}
	return *s.checkpoint, true
}

// SetCheckpoint advances the sync checkpoint. Values older than the current one are ignored.
func (s *Store) SetCheckpoint(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkpoint != nil && t.Before(*s.checkpoint) {
		return false
	}
	s.checkpoint = &t
	return true
}

// Codes returns the cached dictionary codes in lexical order.
func (s *Store) Codes() []string {
	s.mu.RLock()
	codes := make([]string, 0, len(s.records))
	for code := range s.records {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	sort.Strings(codes)
	return codes
}

// Snapshot copies the store into its persisted form.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return NewSnapshot(s.records, s.policy, s.checkpoint)
}

// Restore replaces the store contents with a snapshot. Loading flags are untouched.
func (s *Store) Restore(snapshot Snapshot) {
	records := snapshot.Records()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.checkpoint = nil
	if snapshot.Checkpoint != nil {
		checkpoint := *snapshot.Checkpoint
		s.checkpoint = &checkpoint
	}
}
