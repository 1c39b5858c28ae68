package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
)

func newTestStore(t *testing.T) *storage.FSStore {
	t.Helper()
	base := filepath.Join(t.TempDir(), "media")
	store, err := storage.NewFSStore(base, "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func sampleMetadata() *storage.Metadata {
	return &storage.Metadata{
		Prompt:        "a watercolor fox",
		ModelName:     "black-forest-labs/flux-schnell",
		Parameters:    map[string]any{"width": float64(512)},
		ExternalJobID: "pred-xyz",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

// Test: put then get round-trips both the binary and the metadata.
func TestFSStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()
	data := []byte("fake png bytes")

	if err := store.Put(ctx, id, data, sampleMetadata()); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.GetBytes(ctx, id)
	if err != nil {
		t.Fatalf("get bytes: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("binary mismatch: %q", got)
	}

	meta, err := store.GetMetadata(ctx, id)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta.Prompt != "a watercolor fox" {
		t.Errorf("prompt mismatch: %q", meta.Prompt)
	}
	if meta.ExternalJobID != "pred-xyz" {
		t.Errorf("external job id mismatch: %q", meta.ExternalJobID)
	}
}

// Test: both halves of the artifact pair exist together or not at all.
func TestFSStore_PairInvariant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.Put(ctx, id, []byte("bytes"), sampleMetadata()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.GetBytes(ctx, id); err != nil {
		t.Errorf("binary missing after put: %v", err)
	}
	if _, err := store.GetMetadata(ctx, id); err != nil {
		t.Errorf("metadata missing after put: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetBytes(ctx, id); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Errorf("binary should be gone, got %v", err)
	}
	if _, err := store.GetMetadata(ctx, id); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Errorf("metadata should be gone, got %v", err)
	}
}

// Test: reads of absent artifacts report the sentinel error.
func TestFSStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetBytes(ctx, uuid.New()); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
	if _, err := store.GetMetadata(ctx, uuid.New()); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
}

// Test: deleting an absent artifact is not an error.
func TestFSStore_DeleteIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Delete(context.Background(), uuid.New()); err != nil {
		t.Errorf("delete of absent artifact: %v", err)
	}
}

// Test: file URLs join cleanly regardless of trailing slashes.
func TestFSStore_FileURL(t *testing.T) {
	store := newTestStore(t)
	id := uuid.New()

	want := "http://localhost:8080/media/" + id.String() + ".png"
	if got := store.FileURL(id); got != want {
		t.Errorf("FileURL = %q, want %q", got, want)
	}
}
