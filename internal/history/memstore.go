package history

import (
	"context"
	"sort"
	"sync"

	"github.com/dusk-indust/flowscan/internal/export"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	scans   map[string]ScanMetadata
	results map[string]*export.ResultExport
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		scans:   make(map[string]ScanMetadata),
		results: make(map[string]*export.ResultExport),
	}
}

func (m *MemStore) SaveScan(_ context.Context, meta *ScanMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[meta.ScanID] = *meta
	return nil
}

func (m *MemStore) GetScan(_ context.Context, id string) (*ScanMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}

func (m *MemStore) ListScans(_ context.Context, limit, offset int) ([]*ScanMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*ScanMetadata, 0, len(m.scans))
	for id := range m.scans {
		meta := m.scans[id]
		list = append(list, &meta)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if offset > 0 {
		if offset >= len(list) {
			return []*ScanMetadata{}, nil
		}
		list = list[offset:]
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemStore) MarkViewed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.scans[id]
	if !ok {
		return ErrNotFound
	}
	meta.Viewed = true
	m.scans[id] = meta
	return nil
}

func (m *MemStore) UnviewedCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, meta := range m.scans {
		if meta.Status == StateCompleted && !meta.Viewed {
			count++
		}
	}
	return count, nil
}

func (m *MemStore) SaveResult(_ context.Context, id string, result *export.ResultExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = result
	return nil
}

func (m *MemStore) GetResult(_ context.Context, id string) (*export.ResultExport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

func (m *MemStore) DeleteScan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[id]; !ok {
		return ErrNotFound
	}
	delete(m.scans, id)
	delete(m.results, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
