package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
)

// ArtifactStore keeps artifacts in process memory. Intended for tests and
// throwaway catalogs.
type ArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

var _ interfaces.ArtifactStore = &ArtifactStore{}

// New creates an empty in-memory artifact store
func New() *ArtifactStore {
	return &ArtifactStore{
		artifacts: make(map[string][]byte),
	}
}

func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.artifacts[name]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "artifact not found", goerr.V(model.ArtifactKey, name))
	}
	return append([]byte(nil), data...), nil
}

func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return goerr.New("artifact name is required")
	}
	copied := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[name] = copied
	return nil
}

func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, name)
	return nil
}

func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.artifacts[name]
	return ok, nil
}
