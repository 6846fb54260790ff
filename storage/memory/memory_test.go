package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shield "github.com/it22317094/posguard-brylix-shield"
	"github.com/it22317094/posguard-brylix-shield/storage/memory"
)

func TestStoreRoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// last writer wins
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestStoreMissingKey(t *testing.T) {
	store := memory.New()

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, shield.IsKeyNotFound(err))
}

func TestStoreRemove(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Remove(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.True(t, shield.IsKeyNotFound(err))

	// removing twice is fine
	assert.NoError(t, store.Remove(ctx, "k"))
	assert.Equal(t, 0, store.Len())
}

func TestStoreCopiesValues(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, "shared", []byte("value"))
				_, _ = store.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}
