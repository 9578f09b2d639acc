package filestore

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/kdadks/eyogi/core"
)

// MockStore records uploads in memory; for tests.
type MockStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailUpload makes the next Upload call fail when set.
	FailUpload bool
}

var _ core.FileStore = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

func (s *MockStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpload {
		return "", errors.New("upload failed")
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[key] = content
	return "mock://" + key, nil
}

func (s *MockStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Keys returns the keys of all stored objects.
func (s *MockStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
