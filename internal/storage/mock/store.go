package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
)

var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is an in-memory test double for storage.ArtifactStore.
type ArtifactStore struct {
	mu    sync.Mutex
	blobs map[uuid.UUID][]byte
	metas map[uuid.UUID]*storage.Metadata

	PutFn    func(ctx context.Context, id uuid.UUID, data []byte, meta *storage.Metadata) error
	DeleteFn func(ctx context.Context, id uuid.UUID) error

	PutCalls    []uuid.UUID
	DeleteCalls []uuid.UUID
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		blobs: make(map[uuid.UUID][]byte),
		metas: make(map[uuid.UUID]*storage.Metadata),
	}
}

// Has reports whether an artifact is currently stored for id.
func (m *ArtifactStore) Has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok
}

func (m *ArtifactStore) Put(ctx context.Context, id uuid.UUID, data []byte, meta *storage.Metadata) error {
	m.mu.Lock()
	m.PutCalls = append(m.PutCalls, id)
	m.mu.Unlock()
	if m.PutFn != nil {
		return m.PutFn(ctx, id, data, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = data
	m.metas[id] = meta
	return nil
}

func (m *ArtifactStore) GetBytes(ctx context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[id]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return data, nil
}

func (m *ArtifactStore) GetMetadata(ctx context.Context, id uuid.UUID) (*storage.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[id]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return meta, nil
}

func (m *ArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	delete(m.metas, id)
	return nil
}

func (m *ArtifactStore) FilePath(id uuid.UUID) string {
	return "/tmp/media/" + id.String() + ".png"
}

func (m *ArtifactStore) FileURL(id uuid.UUID) string {
	return "http://localhost:8080/media/" + id.String() + ".png"
}
