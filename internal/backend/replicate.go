package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

const (
	replicateBaseURL = "https://api.replicate.com/v1"

	pollInterval = 10 * time.Second
	maxPollTime  = 5 * time.Minute

	requestTimeout  = 30 * time.Second
	downloadTimeout = 60 * time.Second
)

var _ Generator = (*ReplicateBackend)(nil)

// ReplicateBackend generates media through the Replicate predictions API:
// create a prediction, poll it until it settles, download the first
// output.
type ReplicateBackend struct {
	apiToken string
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
}

// NewReplicateBackend creates a Replicate-backed generator.
func NewReplicateBackend(apiToken string, logger *zap.Logger) *ReplicateBackend {
	return &ReplicateBackend{
		apiToken: apiToken,
		baseURL:  replicateBaseURL,
		client:   &http.Client{},
		logger:   logger,
	}
}

type prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

func (b *ReplicateBackend) Generate(ctx context.Context, req *Request) (*Result, error) {
	pred, err := b.createPrediction(ctx, req)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Prediction created",
		zap.String("job_id", req.JobID.String()),
		zap.String("prediction_id", pred.ID),
	)

	pred, err = b.awaitPrediction(ctx, pred.ID)
	if err != nil {
		return nil, err
	}

	if len(pred.Output) == 0 {
		return nil, domain.NewTransient(fmt.Errorf("replicate: prediction %s succeeded with no output", pred.ID))
	}

	data, err := b.download(ctx, pred.Output[0])
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:          data,
		ContentType:   "image/png",
		ExternalJobID: pred.ID,
	}, nil
}

func (b *ReplicateBackend) createPrediction(ctx context.Context, req *Request) (*prediction, error) {
	model := req.ModelName
	if model == "" || model == "stable-diffusion" {
		model = domain.DefaultModel
	}
	version := model
	if i := strings.LastIndex(model, ":"); i >= 0 {
		version = model[i+1:]
	}

	input := map[string]any{
		"prompt":      req.Prompt,
		"num_outputs": 1,
	}
	for k, v := range req.Parameters {
		input[k] = v
	}

	payload, err := json.Marshal(map[string]any{
		"version": version,
		"input":   input,
	})
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("replicate: encode payload: %w", err))
	}

	pred := &prediction{}
	if err := b.doJSON(ctx, http.MethodPost, b.baseURL+"/predictions", payload, http.StatusCreated, pred); err != nil {
		return nil, err
	}
	return pred, nil
}

// awaitPrediction polls the prediction until it reaches a settled status
// or the poll budget runs out.
func (b *ReplicateBackend) awaitPrediction(ctx context.Context, id string) (*prediction, error) {
	deadline := time.Now().Add(maxPollTime)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		pred := &prediction{}
		err := b.doJSON(ctx, http.MethodGet, b.baseURL+"/predictions/"+id, nil, http.StatusOK, pred)
		if err != nil {
			return nil, err
		}

		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			// The provider gave up on its side. Overload shows up here
			// too, so treat it as retryable unless the input was refused.
			msg := pred.Error
			if msg == "" {
				msg = "unknown provider error"
			}
			return nil, domain.NewTransient(fmt.Errorf("replicate: generation failed: %s", msg))
		}

		if time.Now().After(deadline) {
			return nil, domain.NewTransient(fmt.Errorf("replicate: prediction %s timed out after %s", id, maxPollTime))
		}

		select {
		case <-ctx.Done():
			return nil, domain.NewTransient(fmt.Errorf("replicate: poll cancelled: %w", ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (b *ReplicateBackend) download(ctx context.Context, url string) ([]byte, error) {
	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("replicate: build download request: %w", err))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, domain.NewTransient(fmt.Errorf("replicate: download: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, fmt.Errorf("replicate: download failed with status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransient(fmt.Errorf("replicate: read download body: %w", err))
	}
	return data, nil
}

func (b *ReplicateBackend) doJSON(ctx context.Context, method, url string, body []byte, wantStatus int, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return domain.NewPermanent(fmt.Errorf("replicate: build request: %w", err))
	}
	req.Header.Set("Authorization", "Token "+b.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return domain.NewTransient(fmt.Errorf("replicate: %s %s: %w", method, url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus(resp.StatusCode,
			fmt.Errorf("replicate: %s %s returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewTransient(fmt.Errorf("replicate: decode response: %w", err))
	}
	return nil
}

// classifyStatus maps provider HTTP status codes onto the retry taxonomy.
// Client errors mean the request itself is wrong and will never succeed;
// throttling, timeouts and server errors are worth another attempt.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return domain.NewTransient(err)
	case status >= 500:
		return domain.NewTransient(err)
	default:
		return domain.NewPermanent(err)
	}
}
