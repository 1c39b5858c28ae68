// Package storage persists generated artifacts: one binary media file and
// one JSON metadata document per job id, kept under parallel locations so
// they exist together or not at all.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Metadata is the structured generation record written alongside the
// binary artifact.
type Metadata struct {
	Prompt        string         `json:"prompt"`
	ModelName     string         `json:"model_name"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	ExternalJobID string         `json:"external_job_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ArtifactStore persists binary outputs and their metadata documents,
// keyed by job id. Implementations may target a local filesystem or an
// object store; callers never assume which.
type ArtifactStore interface {
	// Put writes the artifact bytes and metadata document for a job. The
	// metadata document is written first so a reader who can fetch the
	// binary can always fetch its metadata too.
	Put(ctx context.Context, id uuid.UUID, data []byte, meta *Metadata) error

	// GetBytes returns the binary artifact, or domain.ErrArtifactNotFound.
	GetBytes(ctx context.Context, id uuid.UUID) ([]byte, error)

	// GetMetadata returns the metadata document, or domain.ErrArtifactNotFound.
	GetMetadata(ctx context.Context, id uuid.UUID) (*Metadata, error)

	// Delete removes both the artifact and its metadata. Deleting an
	// absent artifact is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// FilePath returns the storage-local path of the artifact.
	FilePath(id uuid.UUID) string

	// FileURL returns the public URL under which the artifact is served.
	FileURL(id uuid.UUID) string
}
