package dictionary

import (
	"sort"
	"time"
)

// Entry is a single option of a dictionary, identified by (Code, Value).
type Entry struct {
	Code         string `json:"code" yaml:"code"`
	Label        string `json:"label" yaml:"label"`
	Value        string `json:"value" yaml:"value"`
	SortOrder    *int   `json:"sortOrder,omitempty" yaml:"sort_order,omitempty"`
	Status       string `json:"status,omitempty" yaml:"status,omitempty"`
	ParentValue  string `json:"parentValue,omitempty" yaml:"parent_value,omitempty"`
	RelatedValue string `json:"relatedValue,omitempty" yaml:"related_value,omitempty"`
}

// Record holds every entry of one dictionary together with the time it was fetched.
// A record is replaced as a whole and never merged.
type Record struct {
	DictionaryCode string    `json:"dictionaryCode" yaml:"dictionary_code"`
	Entries        []Entry   `json:"entries" yaml:"entries"`
	FetchedAt      time.Time `json:"fetchedAt" yaml:"fetched_at"`
}

func (r Record) clone() Record {
	r.Entries = cloneEntries(r.Entries)
	return r
}

// cloneEntries copies entries so that callers never share the cached slice.
func cloneEntries(entries []Entry) []Entry {
	cloned := make([]Entry, len(entries))
	for i, entry := range entries {
		if entry.SortOrder != nil {
			sortOrder := *entry.SortOrder
			entry.SortOrder = &sortOrder
		}
		cloned[i] = entry
	}
	return cloned
}

// Sorted returns a copy of the entries ordered by SortOrder.
// Entries without a sort order keep their relative position after the ordered ones.
func (r Record) Sorted() []Entry {
	sorted := make([]Entry, len(r.Entries))
	copy(sorted, r.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SortOrder, sorted[j].SortOrder
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
	return sorted
}

// ExpiringRecord is the persisted form of a record along with its computed expiry.
type ExpiringRecord struct {
	Data       []Entry `json:"data" yaml:"data"`
	Timestamp  int64   `json:"timestamp" yaml:"timestamp"`
	ExpireTime int64   `json:"expireTime" yaml:"expire_time"`
}

// Snapshot is the durable image of a Store.
type Snapshot struct {
	Dictionaries map[string]Record         `json:"dictionaries" yaml:"dictionaries"`
	DictCache    map[string]ExpiringRecord `json:"dictCache" yaml:"dict_cache"`

	// Checkpoint is stored under its own key and is not part of the blob.
	Checkpoint *time.Time `json:"-" yaml:"-"`
}

// NewSnapshot builds a snapshot of records, deriving the expiry of each from policy.
func NewSnapshot(records map[string]Record, policy ExpirationPolicy, checkpoint *time.Time) Snapshot {
	snapshot := Snapshot{
		Dictionaries: make(map[string]Record, len(records)),
		DictCache:    make(map[string]ExpiringRecord, len(records)),
	}
	for code, record := range records {
		record = record.clone()
		snapshot.Dictionaries[code] = record
		snapshot.DictCache[code] = ExpiringRecord{
			Data:       record.Entries,
			Timestamp:  record.FetchedAt.UnixMilli(),
			ExpireTime: record.FetchedAt.Add(policy.Duration(code)).UnixMilli(),
		}
	}
	if checkpoint != nil {
		copied := *checkpoint
		snapshot.Checkpoint = &copied
	}
	return snapshot
}

// Records returns the records of the snapshot, falling back to DictCache
// for codes that only exist there.
func (s Snapshot) Records() map[string]Record {
	records := make(map[string]Record, len(s.Dictionaries)+len(s.DictCache))
	for code, cached := range s.DictCache {
		records[code] = Record{
			DictionaryCode: code,
			Entries:        cloneEntries(cached.Data),
			FetchedAt:      time.UnixMilli(cached.Timestamp),
		}
	}
	for code, record := range s.Dictionaries {
		if record.DictionaryCode == "" {
			record.DictionaryCode = code
		}
		records[code] = record.clone()
	}
	return records
}
