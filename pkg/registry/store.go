package registry

import (
	"context"
	"sync"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// Store persists tenant-defined custom datasources. Implementations must
// keep creation order stable so the registry's merge order (and therefore
// alias computation) is deterministic across calls.
type Store interface {
	// List returns the tenant's custom datasources in creation order.
	List(ctx context.Context, tenant string) ([]models.Datasource, error)

	// Upsert inserts or replaces one custom datasource atomically.
	Upsert(ctx context.Context, tenant string, ds models.Datasource) error

	// Delete removes one custom datasource. Deleting an unknown ID is a
	// no-op.
	Delete(ctx context.Context, tenant string, id string) error
}

// MemoryStore is the in-process Store used for single-node deployments and
// tests. All mutation happens under one lock, so concurrent admin edits
// cannot lose updates.
type MemoryStore struct {
	mu       sync.RWMutex
	byTenant map[string][]models.Datasource
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTenant: make(map[string][]models.Datasource)}
}

func (s *MemoryStore) List(_ context.Context, tenant string) ([]models.Datasource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := s.byTenant[tenant]
	out := make([]models.Datasource, len(sources))
	copy(out, sources)
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, tenant string, ds models.Datasource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := s.byTenant[tenant]
	for i, existing := range sources {
		if existing.ID == ds.ID {
			sources[i] = ds
			return nil
		}
	}
	s.byTenant[tenant] = append(sources, ds)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tenant string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := s.byTenant[tenant]
	for i, existing := range sources {
		if existing.ID == id {
			s.byTenant[tenant] = append(sources[:i], sources[i+1:]...)
			return nil
		}
	}
	return nil
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
