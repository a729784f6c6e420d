package notes

import (
	"context"
	"sync"
)

// MemoryStore is the transient in-process backend: a tenant -> logical
// key -> ordered record list mapping. It has no error paths except
// ErrNotFound from Delete and is unbounded; its lifetime is the
// process lifetime.
//
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]Record
}

// NewMemoryStore creates an empty transient store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]Record),
	}
}

// Upsert appends the record to its logical group, replacing any
// existing record with the same id.
func (m *MemoryStore) Upsert(_ context.Context, tenant string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	partition, ok := m.data[tenant]
	if !ok {
		partition = make(map[string][]Record)
		m.data[tenant] = partition
	}

	group := partition[rec.LogicalKey]
	for i, existing := range group {
		if existing.ID == rec.ID {
			group[i] = rec
			return nil
		}
	}
	partition[rec.LogicalKey] = append(group, rec)
	return nil
}

// QueryGroup returns records matching the logical key, or the single
// record whose id equals key.
func (m *MemoryStore) QueryGroup(_ context.Context, tenant, key string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	partition := m.data[tenant]
	if partition == nil {
		return nil, nil
	}

	var out []Record
	out = append(out, partition[key]...)

	// Legacy id match: key may be a record id in another group.
	for groupKey, group := range partition {
		if groupKey == key {
			continue
		}
		for _, rec := range group {
			if rec.ID == key {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// QueryAll returns every record in the tenant partition.
func (m *MemoryStore) QueryAll(_ context.Context, tenant string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	partition := m.data[tenant]
	if partition == nil {
		return nil, nil
	}

	var out []Record
	for _, group := range partition {
		out = append(out, group...)
	}
	return out, nil
}

// Delete removes one record by id.
func (m *MemoryStore) Delete(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	partition := m.data[tenant]
	for key, group := range partition {
		for i, rec := range group {
			if rec.ID == id {
				partition[key] = append(group[:i:i], group[i+1:]...)
				if len(partition[key]) == 0 {
					delete(partition, key)
				}
				return nil
			}
		}
	}
	return ErrNotFound
}
