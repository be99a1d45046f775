package credstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/credstore"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemoryStore()

	_, ok := store.Read(credstore.KindAccess)
	assert.False(t, ok)

	store.Save(credstore.KindAccess, "at-123")
	store.Save(credstore.KindRefresh, "rt-456")

	v, ok := store.Read(credstore.KindAccess)
	require.True(t, ok)
	assert.Equal(t, "at-123", v)

	store.Save(credstore.KindAccess, "at-789")
	v, _ = store.Read(credstore.KindAccess)
	assert.Equal(t, "at-789", v, "save overwrites")
}

func TestMemoryStoreProfile(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemoryStore()
	assert.False(t, store.HasProfile())

	store.SaveProfile([]byte(`{"id":"u1"}`))
	assert.True(t, store.HasProfile())

	raw, ok := store.Profile()
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"u1"}`, string(raw))
}

func TestMemoryStoreClear(t *testing.T) {
	t.Parallel()

	store := credstore.NewMemoryStore()
	store.Save(credstore.KindAccess, "at")
	store.Save(credstore.KindRemember, "true")
	store.SaveProfile([]byte(`{}`))

	store.Clear()

	_, ok := store.Read(credstore.KindAccess)
	assert.False(t, ok)
	_, ok = store.Read(credstore.KindRemember)
	assert.False(t, ok)
	assert.False(t, store.HasProfile())

	// Clear on an already-empty store must be a no-op, not a panic.
	store.Clear()
}
