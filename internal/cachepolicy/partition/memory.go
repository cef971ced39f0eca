package partition

import (
	"context"
	"sync"

	"github.com/mlaurent/avidex/internal/common"
)

// Memory is an in-memory Store suitable for tests.
type Memory struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*Response
}

// NewMemory returns an empty in-memory partition store.
func NewMemory() *Memory {
	return &Memory{partitions: make(map[string]map[string]*Response)}
}

func (m *Memory) Get(ctx context.Context, partition, key string) (*Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.partitions[partition]
	if !ok {
		return nil, common.ErrNotFound
	}
	resp, ok := p[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *resp
	return &cp, nil
}

func (m *Memory) Put(ctx context.Context, partition, key string, resp *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.partitions[partition]
	if !ok {
		p = make(map[string]*Response)
		m.partitions[partition] = p
	}
	cp := *resp
	p[key] = &cp
	return nil
}

func (m *Memory) DeletePartition(ctx context.Context, partition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.partitions, partition)
	return nil
}

func (m *Memory) ListPartitions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.partitions))
	for name := range m.partitions {
		names = append(names, name)
	}
	return names, nil
}
