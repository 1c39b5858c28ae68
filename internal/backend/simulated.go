package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

var _ Generator = (*SimulatedBackend)(nil)

// SimulatedConfig tunes the simulated backend's behaviour.
type SimulatedConfig struct {
	// MinDelay and MaxDelay bound the artificial generation latency.
	MinDelay time.Duration
	MaxDelay time.Duration

	// FailureRate is the probability in [0,1] that a call fails with a
	// transient error.
	FailureRate float64

	// ScriptedFailures forces the first N calls to fail transiently
	// before any random behaviour applies. Used to exercise the retry
	// path deterministically.
	ScriptedFailures int
}

// SimulatedBackend is a stand-in generator used when no provider
// credential is configured. It produces a placeholder image and can inject
// artificial delay and synthetic transient failures.
type SimulatedBackend struct {
	cfg    SimulatedConfig
	logger *zap.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	calls int
}

// NewSimulatedBackend creates a simulated generator.
func NewSimulatedBackend(cfg SimulatedConfig, logger *zap.Logger) *SimulatedBackend {
	return &SimulatedBackend{
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *SimulatedBackend) Generate(ctx context.Context, req *Request) (*Result, error) {
	if err := b.sleep(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.calls++
	fail := b.calls <= b.cfg.ScriptedFailures ||
		(b.cfg.FailureRate > 0 && b.rng.Float64() < b.cfg.FailureRate)
	b.mu.Unlock()

	if fail {
		b.logger.Debug("Simulated backend injected failure",
			zap.String("job_id", req.JobID.String()),
		)
		return nil, domain.NewTransient(fmt.Errorf("simulated: synthetic failure for model %s", req.ModelName))
	}

	data, err := placeholderImage(req.JobID)
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("simulated: render placeholder: %w", err))
	}

	return &Result{
		Data:          data,
		ContentType:   "image/png",
		ExternalJobID: "sim-" + uuid.NewString(),
	}, nil
}

func (b *SimulatedBackend) sleep(ctx context.Context) error {
	if b.cfg.MaxDelay <= 0 {
		return nil
	}
	delay := b.cfg.MinDelay
	if spread := b.cfg.MaxDelay - b.cfg.MinDelay; spread > 0 {
		b.mu.Lock()
		delay += time.Duration(b.rng.Int63n(int64(spread)))
		b.mu.Unlock()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.NewTransient(fmt.Errorf("simulated: generation cancelled: %w", ctx.Err()))
	case <-timer.C:
		return nil
	}
}

// placeholderImage renders a solid-colour PNG whose colour is derived from
// the job id, so repeated runs of the same job produce the same artifact.
func placeholderImage(id uuid.UUID) ([]byte, error) {
	const size = 512
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{R: id[0], G: id[1], B: id[2], A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
