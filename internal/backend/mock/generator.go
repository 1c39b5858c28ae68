package mock

import (
	"context"
	"sync"

	"github.com/abhishekpatel946/replicate-media-generation/internal/backend"
)

var _ backend.Generator = (*Generator)(nil)

// Generator is a test double for backend.Generator.
type Generator struct {
	mu sync.Mutex

	GenerateFn func(ctx context.Context, req *backend.Request) (*backend.Result, error)

	GenerateCalls []*backend.Request
}

func (m *Generator) Generate(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	return &backend.Result{
		Data:        []byte{0x89, 'P', 'N', 'G'},
		ContentType: "image/png",
	}, nil
}
