package port

import (
	"context"
	"errors"
)

var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrQuotaExceeded = errors.New("slot quota exceeded")
)

// SlotStore is the key-value storage a cart persists its collections into.
type SlotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
}

// BatchSlotStore is implemented by stores that can write several slots atomically.
type BatchSlotStore interface {
	SlotStore
	SaveAll(ctx context.Context, values map[string][]byte) error
}
