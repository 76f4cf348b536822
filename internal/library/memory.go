package library

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Provider, used by tests and local fixtures. It
// counts MaterializeContent calls so cache behavior can be asserted.
type Memory struct {
	mu               sync.Mutex
	assets           map[string]Asset
	order            []string
	content          map[string][]byte
	materializeCalls map[string]int
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		assets:           make(map[string]Asset),
		content:          make(map[string][]byte),
		materializeCalls: make(map[string]int),
	}
}

// Add registers an asset with optional content bytes.
func (m *Memory) Add(asset Asset, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assets[asset.ID]; !exists {
		m.order = append(m.order, asset.ID)
	}
	m.assets[asset.ID] = asset
	if content != nil {
		m.content[asset.ID] = content
	}
}

func (m *Memory) EnumerateAll(ctx context.Context, opts EnumerateOptions) ([]Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assets := make([]Asset, 0, len(m.order))
	for _, id := range m.order {
		assets = append(assets, m.assets[id])
	}
	return assets, nil
}

func (m *Memory) ResolveByID(ctx context.Context, id string) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s not found", id)
	}
	return &asset, nil
}

func (m *Memory) MaterializeContent(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materializeCalls[id]++
	data, ok := m.content[id]
	if !ok {
		return nil, fmt.Errorf("no content for asset %s", id)
	}
	return data, nil
}

// MaterializeCalls reports how many times content was fetched for an id.
func (m *Memory) MaterializeCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.materializeCalls[id]
}
