package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/clearspeech/disfluency/feature"
)

// HTTPConfig configures the HTTP classifier client.
type HTTPConfig struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	ModelVersion  string
}

// HTTPPredictor talks to an external classifier service over HTTP. One
// request per segment tensor; concurrency is bounded by a semaphore and
// transient failures are retried with exponential backoff.
type HTTPPredictor struct {
	config     HTTPConfig
	vocab      *Vocabulary
	httpClient *http.Client
	semaphore  chan struct{}
}

// predictRequest is the wire form of one tensor. Data is band-major, the
// same layout feature.Tensor carries internally.
type predictRequest struct {
	Bands  int       `json:"bands"`
	Frames int       `json:"frames"`
	Data   []float64 `json:"data"`
}

// NewHTTPPredictor creates a classifier client for the given endpoint.
func NewHTTPPredictor(config HTTPConfig, vocab *Vocabulary) (*HTTPPredictor, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if vocab == nil {
		return nil, fmt.Errorf("vocabulary cannot be nil")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPPredictor{
		config:     config,
		vocab:      vocab,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Predict sends one tensor for classification.
func (p *HTTPPredictor) Predict(ctx context.Context, tensor *feature.Tensor) (*Prediction, error) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		prediction, err := p.doRequest(ctx, tensor)
		if err == nil {
			return prediction, nil
		}

		lastErr = err

		if !p.isRetryableError(err) {
			break
		}
	}

	if errors.Is(lastErr, errEndpointGone) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, p.config.Endpoint)
	}

	return nil, fmt.Errorf("prediction failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// Vocabulary returns the class list the remote model predicts over.
func (p *HTTPPredictor) Vocabulary() *Vocabulary {
	return p.vocab
}

// ModelVersion identifies the remote model for result attribution.
func (p *HTTPPredictor) ModelVersion() string {
	return p.config.ModelVersion
}

// errEndpointGone marks responses that mean the classifier capability is
// not deployed at all, as opposed to a transient per-request failure.
var errEndpointGone = errors.New("classifier endpoint not found")

// doRequest performs a single prediction round trip.
func (p *HTTPPredictor) doRequest(ctx context.Context, tensor *feature.Tensor) (*Prediction, error) {
	payload, err := json.Marshal(predictRequest{
		Bands:  tensor.Bands,
		Frames: tensor.Frames,
		Data:   tensor.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tensor: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("%w: HTTP %d", errEndpointGone, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var prediction Prediction
	if err := json.Unmarshal(respBody, &prediction); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return &prediction, nil
}

// isRetryableError determines if an error is worth another attempt.
func (p *HTTPPredictor) isRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, errEndpointGone) {
		return false
	}

	errStr := err.Error()

	// 5xx server errors and rate limiting are retryable
	if strings.Contains(errStr, "HTTP error 5") {
		return true
	}
	if strings.Contains(errStr, "HTTP error 429") {
		return true
	}

	// Network/connection errors are typically retryable
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}

// Close waits for all in-flight requests to drain.
func (p *HTTPPredictor) Close() error {
	for i := 0; i < p.config.MaxConcurrent; i++ {
		p.semaphore <- struct{}{}
	}

	return nil
}
