package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlight/distill/core"
)

func TestRegistry_Ensure(t *testing.T) {
	registry := NewRegistry()

	token := registry.Ensure(core.ID(1))
	require.NotNil(t, token)
	assert.False(t, token.Signaled())
	assert.NoError(t, token.Context().Err())

	again := registry.Ensure(core.ID(1))
	assert.Same(t, token, again, "ensure should be idempotent per id")

	other := registry.Ensure(core.ID(2))
	assert.NotSame(t, token, other)
}

func TestRegistry_Signal(t *testing.T) {
	registry := NewRegistry()
	token := registry.Ensure(core.ID(1))

	assert.True(t, registry.Signal(core.ID(1)))
	assert.True(t, token.Signaled())

	select {
	case <-token.Context().Done():
	default:
		t.Fatal("signaling should cancel the token context")
	}

	assert.False(t, registry.Signal(core.ID(404)), "unknown id reports false")
}

func TestRegistry_Reset(t *testing.T) {
	registry := NewRegistry()
	old := registry.Ensure(core.ID(1))
	old.Signal()

	fresh := registry.Reset(core.ID(1))
	assert.NotSame(t, old, fresh)
	assert.False(t, fresh.Signaled())
	assert.NoError(t, fresh.Context().Err())

	assert.Same(t, fresh, registry.Get(core.ID(1)))
}

func TestRegistry_Discard(t *testing.T) {
	registry := NewRegistry()
	token := registry.Ensure(core.ID(1))

	registry.Discard(core.ID(1), token)
	assert.Nil(t, registry.Get(core.ID(1)))

	select {
	case <-token.Context().Done():
	default:
		t.Fatal("discard should cancel the dropped token")
	}
}

func TestRegistry_Discard_SparesReplacement(t *testing.T) {
	registry := NewRegistry()
	old := registry.Ensure(core.ID(1))
	fresh := registry.Reset(core.ID(1))

	// A finishing executor still holding the pre-retry token must not
	// tear down the token the retried run is about to use.
	registry.Discard(core.ID(1), old)
	assert.Same(t, fresh, registry.Get(core.ID(1)))
	assert.NoError(t, fresh.Context().Err())
}

func TestRegistry_Remove(t *testing.T) {
	registry := NewRegistry()
	token := registry.Ensure(core.ID(1))

	registry.Remove(core.ID(1))
	assert.Nil(t, registry.Get(core.ID(1)))

	select {
	case <-token.Context().Done():
	default:
		t.Fatal("remove should cancel the discarded token")
	}

	// Removing twice is harmless.
	registry.Remove(core.ID(1))
}
