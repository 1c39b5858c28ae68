package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

var _ ArtifactStore = (*FSStore)(nil)

const artifactExtension = "png"

// FSStore stores artifacts on the local filesystem: media files under the
// base path, metadata documents under a sibling metadata directory.
type FSStore struct {
	basePath     string
	metadataPath string
	baseURL      string
}

// NewFSStore creates a filesystem artifact store rooted at basePath.
// Both directories are created up front.
func NewFSStore(basePath, baseURL string) (*FSStore, error) {
	metadataPath := filepath.Join(filepath.Dir(basePath), "metadata")
	for _, dir := range []string{basePath, metadataPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create directory %s: %w", dir, err)
		}
	}
	return &FSStore{
		basePath:     basePath,
		metadataPath: metadataPath,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *FSStore) FilePath(id uuid.UUID) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.%s", id, artifactExtension))
}

func (s *FSStore) metadataFilePath(id uuid.UUID) string {
	return filepath.Join(s.metadataPath, fmt.Sprintf("%s.json", id))
}

func (s *FSStore) FileURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s.%s", s.baseURL, id, artifactExtension)
}

func (s *FSStore) Put(ctx context.Context, id uuid.UUID, data []byte, meta *Metadata) error {
	doc, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode metadata for job %s: %w", id, err)
	}
	// Metadata first: the completed-status flip only happens after Put
	// returns, so ordering inside Put decides which half can be orphaned
	// by a crash. An orphaned metadata document is harmless; an orphaned
	// binary without metadata would break the dual-artifact invariant.
	if err := os.WriteFile(s.metadataFilePath(id), doc, 0o644); err != nil {
		return fmt.Errorf("storage: write metadata for job %s: %w", id, err)
	}
	if err := os.WriteFile(s.FilePath(id), data, 0o644); err != nil {
		return fmt.Errorf("storage: write file for job %s: %w", id, err)
	}
	return nil
}

func (s *FSStore) GetBytes(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(s.FilePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("storage: read file for job %s: %w", id, err)
	}
	return data, nil
}

func (s *FSStore) GetMetadata(ctx context.Context, id uuid.UUID) (*Metadata, error) {
	doc, err := os.ReadFile(s.metadataFilePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("storage: read metadata for job %s: %w", id, err)
	}
	meta := &Metadata{}
	if err := json.Unmarshal(doc, meta); err != nil {
		return nil, fmt.Errorf("storage: decode metadata for job %s: %w", id, err)
	}
	return meta, nil
}

func (s *FSStore) Delete(ctx context.Context, id uuid.UUID) error {
	for _, path := range []string{s.FilePath(id), s.metadataFilePath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", path, err)
		}
	}
	return nil
}
