package qart

import (
	"context"
	"io"
	"maps"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	uploads int
}

type memoryObject struct {
	info Object
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}}
}

func (s *MemoryStore) EnsureBucket(context.Context) error {
	return nil
}

func (s *MemoryStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size >= 0 {
		reader = io.LimitReader(reader, size)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	info := Object{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: time.Now(),
		Metadata:     maps.Clone(metadata),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{info: info, data: data}
	s.uploads++
	return &info, nil
}

func (s *MemoryStore) Stat(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	info := obj.info
	return &info, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Uploads counts successful Upload calls.
func (s *MemoryStore) Uploads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploads
}

var _ Store = (*MemoryStore)(nil)
