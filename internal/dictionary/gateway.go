package dictionary

import (
	"context"
	"time"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/dictionary/mock_gateway.go -package=mock_dictionary

// Gateway is the remote dictionary service.
// Codes missing from a keyed result mean the service has no data for them.
type Gateway interface {
	FetchDictionary(ctx context.Context, code string) ([]Entry, error)
	// FetchChanges returns the dictionaries changed since the given time, or all of them when since is nil.
	FetchChanges(ctx context.Context, since *time.Time) (map[string][]Entry, error)
	FetchLabel(ctx context.Context, code string, value string) (string, error)
	FetchTypes(ctx context.Context) ([]string, error)
	FetchBatch(ctx context.Context, codes []string) (map[string][]Entry, error)
}
