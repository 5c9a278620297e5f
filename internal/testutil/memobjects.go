package testutil

import (
	"context"
	"sync"

	"github.com/markdave123-py/Learnify/internal/core"
)

type MemObjects struct {
	mu        sync.Mutex
	Files     map[string][]byte
	UploadErr error
}

var _ core.ObjectClient = (*MemObjects)(nil)

func NewMemObjects() *MemObjects {
	return &MemObjects{Files: map[string][]byte{}}
}

func (m *MemObjects) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	m.Files[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (m *MemObjects) GetFile(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Files[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return b, nil
}

func (m *MemObjects) DeleteFile(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, key)
	return nil
}

// Len reports how many objects are stored.
func (m *MemObjects) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Files)
}
