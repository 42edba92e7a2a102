package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryBlobPrefix is the URL path the API serves memory blobs under.
const MemoryBlobPrefix = "/v1/blobs/"

type memoryBlob struct {
	data        []byte
	contentType string
	name        string
}

// MemoryStore keeps artifacts in process memory for the lifetime of the session.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

func (m *MemoryStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	id := uuid.New().String()
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.blobs[id] = memoryBlob{data: buf, contentType: contentType, name: name}
	m.mu.Unlock()

	return MemoryBlobPrefix + id, nil
}

func (m *MemoryStore) Revoke(ctx context.Context, url string) error {
	id := strings.TrimPrefix(url, MemoryBlobPrefix)
	m.mu.Lock()
	delete(m.blobs, id)
	m.mu.Unlock()
	return nil
}

// Get returns a blob by id together with its content type and original name.
func (m *MemoryStore) Get(id string) ([]byte, string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.blobs[id]
	if !ok {
		return nil, "", "", ErrBlobNotFound
	}
	return blob.data, blob.contentType, blob.name, nil
}

// Len reports the number of live blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
