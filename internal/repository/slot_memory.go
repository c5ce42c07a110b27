package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikolayk812/repairshop-cart/internal/port"
)

type memorySlots struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemorySlots() port.BatchSlotStore {
	return &memorySlots{
		values: make(map[string][]byte),
	}
}

func (m *memorySlots) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, port.ErrSlotNotFound
	}

	return slices.Clone(value), nil
}

func (m *memorySlots) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = slices.Clone(value)
	return nil
}

func (m *memorySlots) SaveAll(_ context.Context, values map[string][]byte) error {
	for key := range values {
		if key == "" {
			return fmt.Errorf("key is empty")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range values {
		m.values[key] = slices.Clone(value)
	}
	return nil
}

func (m *memorySlots) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.values[key]
	delete(m.values, key)
	return ok, nil
}
