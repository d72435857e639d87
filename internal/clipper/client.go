// Package clipper provides an HTTP client for the external clip-generation
// endpoint. The endpoint transcribes the uploaded recording, selects
// highlights and renders vertical clips into the job's storage namespace;
// this client only submits work and reports success or failure.
package clipper

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

// Static errors for clipper client operations.
var (
	// ErrEndpointRequired is returned when the endpoint URL is not provided.
	ErrEndpointRequired = errors.New("clipper: endpoint URL is required")
	// ErrTokenNotSet is returned when no auth token is configured and the
	// PROCESS_ENDPOINT_TOKEN environment variable is not set.
	ErrTokenNotSet = errors.New("clipper: PROCESS_ENDPOINT_TOKEN environment variable is not set")
	// ErrUnreachable is returned when the endpoint cannot be reached.
	ErrUnreachable = errors.New("clipper: endpoint unreachable")
	// ErrRequestFailed is returned when the endpoint responds with a
	// non-2xx status code.
	ErrRequestFailed = errors.New("clipper: request failed")
)

// defaultTimeout allows for transcription and rendering of long recordings.
const defaultTimeout = 15 * time.Minute

// Client defines the interface for invoking the clip-generation endpoint.
type Client interface {
	// Process asks the endpoint to generate at most maxClips clips from
	// the recording at storageKey. It returns once the endpoint finished;
	// produced clips are discovered by listing storage afterwards.
	Process(ctx context.Context, storageKey string, maxClips int) error
}

// HTTPClient is the HTTP implementation of the Client interface.
type HTTPClient struct {
	endpointURL string
	token       string
	httpClient  *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithToken sets the bearer token for authentication.
func WithToken(token string) ClientOption {
	return func(hc *HTTPClient) {
		hc.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// NewClient creates a new clip-generation HTTP client for the given
// endpoint URL. The bearer token can be set via the WithToken option; if
// not provided, it is read from the environment variable
// PROCESS_ENDPOINT_TOKEN.
func NewClient(endpointURL string, opts ...ClientOption) (*HTTPClient, error) {
	if endpointURL == "" {
		return nil, ErrEndpointRequired
	}

	c := &HTTPClient{
		endpointURL: endpointURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" {
		c.token = os.Getenv("PROCESS_ENDPOINT_TOKEN")
	}
	if c.token == "" {
		return nil, ErrTokenNotSet
	}

	return c, nil
}

// processRequest is the request body for the clip-generation endpoint.
type processRequest struct {
	S3Key    string `json:"s3_key"`
	MaxClips int    `json:"max_clips"`
}

// Process submits one generation request and waits for completion.
// A single attempt is made: the caller owns retry-by-resubmission, and a
// blind retry here could double-render clips the caller already paid for.
func (c *HTTPClient) Process(ctx context.Context, storageKey string, maxClips int) error {
	bodyBytes, err := json.Marshal(processRequest{
		S3Key:    storageKey,
		MaxClips: maxClips,
	})
	if err != nil {
		return fmt.Errorf("clipper: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("clipper: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
