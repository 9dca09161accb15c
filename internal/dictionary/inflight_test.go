package dictionary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (r *inflight) pending(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.calls[code]
	return ok
}

func TestInflight(t *testing.T) {
	registry := newInflight()

	call, owner := registry.begin("GENDER")
	require.True(t, owner)
	assert.True(t, registry.pending("GENDER"))

	same, owner := registry.begin("GENDER")
	assert.False(t, owner)
	assert.Same(t, call, same)

	other, owner := registry.begin("STATUS")
	assert.True(t, owner)
	assert.NotSame(t, call, other)

	registry.complete("GENDER", call, genderEntries)
	assert.False(t, registry.pending("GENDER"))
	assert.True(t, registry.pending("STATUS"))

	got, err := same.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, genderEntries, got)

	next, owner := registry.begin("GENDER")
	assert.True(t, owner, "a completed fetch must not be shared with later callers")
	assert.NotSame(t, call, next)
}

func TestPendingFetch_waitReturnsCopies(t *testing.T) {
	registry := newInflight()
	call, _ := registry.begin("GENDER")
	registry.complete("GENDER", call, []Entry{{Code: "GENDER", Label: "男", Value: "1"}})

	first, err := call.wait(context.Background())
	require.NoError(t, err)
	first[0].Label = "changed"

	second, err := call.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "男", second[0].Label)
}

func TestPendingFetch_waitCanceled(t *testing.T) {
	registry := newInflight()
	call, _ := registry.begin("GENDER")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := call.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.True(t, registry.pending("GENDER"))
}

func TestInflight_completeStaleCall(t *testing.T) {
	registry := newInflight()
	first, _ := registry.begin("GENDER")
	registry.complete("GENDER", first, nil)
	second, _ := registry.begin("GENDER")

	// Completing an already replaced call leaves the newer one registered.
	stale := &pendingFetch{done: make(chan struct{})}
	registry.complete("GENDER", stale, nil)

	assert.True(t, registry.pending("GENDER"))
	assert.Same(t, second, registry.calls["GENDER"])
}
