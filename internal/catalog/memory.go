package catalog

import (
	"context"
	"sync"
)

// Memory is an in-process Catalog for tests and local tooling.
type Memory struct {
	mu       sync.RWMutex
	products map[string]ProductSnapshot
	failures map[string]error
	reads    int
}

func NewMemory(products ...ProductSnapshot) *Memory {
	m := &Memory{
		products: make(map[string]ProductSnapshot),
		failures: make(map[string]error),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *Memory) GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if err, ok := m.failures[productID]; ok {
		return nil, err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// Put adds or replaces a product.
func (m *Memory) Put(p ProductSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// SetStock changes the stock for an existing product.
func (m *Memory) SetStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; ok {
		p.Stock = stock
		m.products[productID] = p
	}
}

// Delete removes a product from the catalog.
func (m *Memory) Delete(productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, productID)
}

// Fail makes lookups of productID return err until cleared with a nil err.
func (m *Memory) Fail(productID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, productID)
		return
	}
	m.failures[productID] = err
}

// Reads returns how many lookups were served.
func (m *Memory) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}
