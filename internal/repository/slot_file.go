package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nikolayk812/repairshop-cart/internal/port"
)

// DefaultMaxValueBytes matches the per-origin budget browsers give localStorage.
const DefaultMaxValueBytes = 5 << 20

type fileSlots struct {
	dir      string
	maxBytes int
}

// NewFileSlots keeps every slot in its own JSON file under dir.
// A maxBytes of zero or less selects DefaultMaxValueBytes.
func NewFileSlots(dir string, maxBytes int) (port.SlotStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxValueBytes
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	return &fileSlots{
		dir:      dir,
		maxBytes: maxBytes,
	}, nil
}

func (f *fileSlots) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+".json")
}

func (f *fileSlots) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	return data, nil
}

func (f *fileSlots) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}
	if len(value) > f.maxBytes {
		return fmt.Errorf("key[%s] value of %d bytes: %w", key, len(value), port.ErrQuotaExceeded)
	}

	tmp, err := os.CreateTemp(f.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("tmp.Write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}

	return nil
}

func (f *fileSlots) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key is empty")
	}

	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("os.Remove: %w", err)
	}

	return true, nil
}
