package backend_test

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/backend"
	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

func simRequest() *backend.Request {
	return &backend.Request{
		JobID:     uuid.New(),
		Prompt:    "a fox",
		ModelName: domain.DefaultModel,
	}
}

// Test: a zero-config simulation succeeds and returns a decodable PNG.
func TestSimulated_Success(t *testing.T) {
	b := backend.NewSimulatedBackend(backend.SimulatedConfig{}, zap.NewNop())

	res, err := b.Generate(context.Background(), simRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ContentType != "image/png" {
		t.Errorf("content type = %q", res.ContentType)
	}
	if !strings.HasPrefix(res.ExternalJobID, "sim-") {
		t.Errorf("external job id = %q", res.ExternalJobID)
	}

	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != 512 {
		t.Errorf("width = %d, want 512", got)
	}
}

// Test: the same job id always renders the same placeholder bytes.
func TestSimulated_Deterministic(t *testing.T) {
	b := backend.NewSimulatedBackend(backend.SimulatedConfig{}, zap.NewNop())
	req := simRequest()

	first, err := b.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("expected identical placeholder bytes for the same job")
	}
}

// Test: scripted failures are transient and stop after the scripted count.
func TestSimulated_ScriptedFailures(t *testing.T) {
	b := backend.NewSimulatedBackend(backend.SimulatedConfig{ScriptedFailures: 2}, zap.NewNop())
	req := simRequest()

	for i := 0; i < 2; i++ {
		_, err := b.Generate(context.Background(), req)
		if err == nil {
			t.Fatalf("call %d: expected failure", i+1)
		}
		if !domain.IsTransient(err) {
			t.Errorf("call %d: scripted failure should be transient", i+1)
		}
	}

	if _, err := b.Generate(context.Background(), req); err != nil {
		t.Fatalf("third call should succeed, got %v", err)
	}
}

// Test: a failure rate of 1 always fails, of 0 never fails.
func TestSimulated_FailureRate(t *testing.T) {
	always := backend.NewSimulatedBackend(backend.SimulatedConfig{FailureRate: 1}, zap.NewNop())
	for i := 0; i < 5; i++ {
		if _, err := always.Generate(context.Background(), simRequest()); err == nil {
			t.Fatal("expected failure with rate 1")
		}
	}

	never := backend.NewSimulatedBackend(backend.SimulatedConfig{FailureRate: 0}, zap.NewNop())
	for i := 0; i < 5; i++ {
		if _, err := never.Generate(context.Background(), simRequest()); err != nil {
			t.Fatalf("unexpected failure with rate 0: %v", err)
		}
	}
}

// Test: cancellation during the simulated latency window is transient.
func TestSimulated_CancelDuringDelay(t *testing.T) {
	b := backend.NewSimulatedBackend(backend.SimulatedConfig{
		MinDelay: time.Minute,
		MaxDelay: time.Minute,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Generate(ctx, simRequest())
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !domain.IsTransient(err) {
		t.Error("cancellation should classify as transient")
	}
}
