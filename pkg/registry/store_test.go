package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

func TestMemoryStoreUpsertPreservesCreationOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "t1", models.Datasource{ID: "b"}))
	require.NoError(t, store.Upsert(ctx, "t1", models.Datasource{ID: "a"}))
	// Updating an existing record must not move it.
	require.NoError(t, store.Upsert(ctx, "t1", models.Datasource{ID: "b", Name: "updated"}))

	sources, err := store.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b", sources[0].ID)
	assert.Equal(t, "updated", sources[0].Name)
	assert.Equal(t, "a", sources[1].ID)
}

func TestMemoryStoreTenantIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "t1", models.Datasource{ID: "mine"}))

	other, err := store.List(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreDeleteUnknownIsNoop(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "t1", "ghost"))
}

func TestMemoryStoreConcurrentUpserts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			_ = store.Upsert(ctx, "t1", models.Datasource{ID: id})
		}(i)
	}
	wg.Wait()

	sources, err := store.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, sources, 26)
}
