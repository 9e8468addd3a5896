package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for Veo client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("veo: API key is required")
	// ErrModelRequired is returned when a submit has no model name.
	ErrModelRequired = errors.New("veo: model name is required")
	// ErrOperationNameRequired is returned when a poll has no operation name.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrNoOperationReturned is returned when a submit response carries
	// no operation name.
	ErrNoOperationReturned = errors.New("veo: submit returned no operation name")
	// ErrNoVideoReturned is returned when a finished operation carries
	// no downloadable sample.
	ErrNoVideoReturned = errors.New("veo: operation finished without a video sample")
	// ErrPollBudgetExceeded is returned when an operation does not reach
	// a terminal state within the polling budget.
	ErrPollBudgetExceeded = errors.New("veo: poll budget exceeded")
	// ErrOperationFailed is returned when the provider reports a failed
	// operation.
	ErrOperationFailed = errors.New("veo: operation failed")
)

// StatusError is returned for non-2xx API responses, preserving the
// HTTP status code so callers can classify the failure.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("veo: request failed with status %d: %s", e.StatusCode, e.Body)
}

// StatusCodeOf extracts the HTTP status code from an error chain.
// Returns 0 when the chain has no StatusError.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client defines the interface for the Veo video generation API.
type Client interface {
	// Submit starts a long-running generation and returns its
	// operation name.
	Submit(ctx context.Context, req SubmitRequest) (opName string, err error)

	// Poll checks the state of a long-running operation.
	Poll(ctx context.Context, opName string) (PollResult, error)

	// Download fetches a finished video to destPath.
	Download(ctx context.Context, videoURI, destPath string) error

	// GenerateClip runs the full submit/poll/download cycle with the
	// client's bounded polling budget.
	GenerateClip(ctx context.Context, req SubmitRequest, destPath string) error

	// CheckQuota performs a cheap pre-flight quota probe for a model.
	CheckQuota(ctx context.Context, model string) (QuotaStatus, error)

	// Reachable reports whether the API endpoint responds at all.
	Reachable(ctx context.Context) error
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
type HTTPClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithPollBudget bounds the poll loop to maxPolls checks spaced by
// interval. Exceeding the budget surfaces ErrPollBudgetExceeded.
func WithPollBudget(maxPolls int, interval time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient creates a new Veo HTTP client. The API key can be set via
// the WithAPIKey option; if not provided it is read from the
// GEMINI_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:      "https://generativelanguage.googleapis.com/v1beta",
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: 10 * time.Second,
		maxPolls:     30,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	return c, nil
}

// Submit starts a long-running generation and returns its operation name.
func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if req.Model == "" {
		return "", ErrModelRequired
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "9:16"
	}

	instance := submitInstance{Prompt: req.Prompt}
	if req.ImageBase64 != "" {
		instance.Image = &submitImage{
			BytesBase64Encoded: req.ImageBase64,
			MimeType:           "image/png",
		}
	}

	body := submitRequest{
		Instances: []submitInstance{instance},
		Parameters: submitParameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: req.DurationSeconds,
			SampleCount:     1,
		},
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, req.Model)

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", ErrNoOperationReturned
	}
	return resp.Name, nil
}

// Poll checks the state of a long-running operation.
func (c *HTTPClient) Poll(ctx context.Context, opName string) (PollResult, error) {
	if opName == "" {
		return PollResult{}, ErrOperationNameRequired
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, opName)

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{Done: resp.Done}
	if resp.Error != nil {
		result.Error = resp.Error.Message
		result.Code = resp.Error.Code
		return result, nil
	}
	if resp.Done && resp.Response != nil && resp.Response.GenerateVideoResponse != nil {
		samples := resp.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 {
			result.VideoURI = samples[0].Video.URI
		}
	}
	return result, nil
}

// Download fetches a finished video to destPath.
func (c *HTTPClient) Download(ctx context.Context, videoURI, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURI, nil)
	if err != nil {
		return fmt.Errorf("veo: create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo: download request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	f, err := os.Create(destPath) // #nosec G304 - destPath is constructed internally
	if err != nil {
		return fmt.Errorf("veo: create output file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("veo: write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("veo: close output file: %w", err)
	}
	return nil
}

// GenerateClip runs submit, a bounded poll loop and the final download
// as one blocking call. The worst-case latency is capped by the poll
// budget regardless of provider hang behavior.
func (c *HTTPClient) GenerateClip(ctx context.Context, req SubmitRequest, destPath string) error {
	opName, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("veo: generation cancelled: %w", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		result, err := c.Poll(ctx, opName)
		if err != nil {
			return err
		}
		if !result.Done {
			continue
		}
		if result.Error != "" {
			return operationFailure(result)
		}
		if result.VideoURI == "" {
			return ErrNoVideoReturned
		}
		return c.Download(ctx, result.VideoURI, destPath)
	}

	return fmt.Errorf("%w after %d checks", ErrPollBudgetExceeded, c.maxPolls)
}

// CheckQuota performs a pre-flight quota probe by requesting the model
// metadata. A 429 means the quota window is already exhausted.
func (c *HTTPClient) CheckQuota(ctx context.Context, model string) (QuotaStatus, error) {
	if model == "" {
		return QuotaUnknown, ErrModelRequired
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, model)
	err := c.doJSON(ctx, http.MethodGet, url, nil, nil)
	if err == nil {
		return QuotaAvailable, nil
	}
	if StatusCodeOf(err) == http.StatusTooManyRequests {
		return QuotaExhausted, nil
	}
	return QuotaUnknown, err
}

// Reachable reports whether the API endpoint responds at all.
func (c *HTTPClient) Reachable(ctx context.Context) error {
	url := fmt.Sprintf("%s/models", c.baseURL)
	err := c.doJSON(ctx, http.MethodGet, url, nil, nil)
	// Auth and quota problems still prove the endpoint is reachable;
	// those are surfaced per attempt, not at probe time.
	if code := StatusCodeOf(err); code != 0 {
		return nil
	}
	return err
}

// operationFailure maps a failed operation to an error that preserves
// the provider's error code as an HTTP-style status.
func operationFailure(result PollResult) error {
	if result.Code != 0 {
		return fmt.Errorf("%w: %w", ErrOperationFailed,
			&StatusError{StatusCode: result.Code, Body: result.Error})
	}
	return fmt.Errorf("%w: %s", ErrOperationFailed, result.Error)
}

// doJSON performs an HTTP request with a JSON body and decodes the
// JSON response into result when result is non-nil.
func (c *HTTPClient) doJSON(ctx context.Context, method, url string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("veo: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("veo: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("veo: unmarshal response: %w", err)
		}
	}
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
