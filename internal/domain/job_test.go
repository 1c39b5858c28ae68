package domain_test

import (
	"errors"
	"testing"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

// Test: terminal states absorb; nothing leaves them.
func TestStatus_Terminal(t *testing.T) {
	terminal := []domain.JobStatus{domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled}
	live := []domain.JobStatus{domain.StatusPending, domain.StatusProcessing}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		for _, next := range append(terminal, live...) {
			if s.CanTransitionTo(next) {
				t.Errorf("%s -> %s should be forbidden", s, next)
			}
		}
	}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// Test: the permitted transitions of the lifecycle.
func TestStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to domain.JobStatus
		ok       bool
	}{
		{domain.StatusPending, domain.StatusProcessing, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusFailed, true},
		{domain.StatusPending, domain.StatusCompleted, false},
		{domain.StatusProcessing, domain.StatusCompleted, true},
		{domain.StatusProcessing, domain.StatusFailed, true},
		{domain.StatusProcessing, domain.StatusCancelled, true},
		// Retry re-arms processing back to pending.
		{domain.StatusProcessing, domain.StatusPending, true},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

// Test: only known lifecycle states validate.
func TestStatus_IsValid(t *testing.T) {
	if !domain.StatusPending.IsValid() {
		t.Error("pending should be valid")
	}
	if domain.JobStatus("exploded").IsValid() {
		t.Error("unknown status should not be valid")
	}
}

// Test: the model catalog accepts its own entries and rejects strangers.
func TestIsKnownModel(t *testing.T) {
	if !domain.IsKnownModel(domain.DefaultModel) {
		t.Error("default model should be known")
	}
	if !domain.IsKnownModel("stable-diffusion") {
		t.Error("legacy alias should be known")
	}
	if domain.IsKnownModel("acme/imaginary-model") {
		t.Error("unlisted model should not be known")
	}
}

// Test: the failure taxonomy defaults unclassified errors to transient.
func TestBackendError_Taxonomy(t *testing.T) {
	if !domain.IsTransient(domain.NewTransient(errors.New("503"))) {
		t.Error("transient error misclassified")
	}
	if domain.IsTransient(domain.NewPermanent(errors.New("bad prompt"))) {
		t.Error("permanent error misclassified")
	}
	if !domain.IsTransient(errors.New("who knows")) {
		t.Error("unclassified errors should default to transient")
	}

	// Wrapped errors keep their classification.
	wrapped := domain.NewPermanent(errors.New("rejected"))
	var be *domain.BackendError
	if !errors.As(wrapped, &be) {
		t.Fatal("expected BackendError")
	}
}
