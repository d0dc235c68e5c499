// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the imaging-assistant backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable    = &ClientError{Type: ErrTypeUnreachable, Message: "backend is not reachable"}
	ErrTimeout        = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrReportNotFound = &ClientError{Type: ErrTypeNotFound, Message: "report not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the origin the backend listens on out of the box.
const DefaultBaseURL = "http://localhost:8000"

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend origin (default: http://localhost:8000)
	BaseURL string

	// QueryTimeout bounds POST /query. Zero means no timeout: the backend
	// pipeline may run for minutes and cancellation is left to the caller.
	QueryTimeout time.Duration

	// ProgressTimeout bounds GET /progress (default: 10s)
	ProgressTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         DefaultBaseURL,
		ProgressTimeout: 10 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the backend. It issues four independent
// request shapes against a single origin and never retries.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ProgressTimeout == 0 {
		config.ProgressTimeout = 10 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// DownloadURL returns the absolute download link for a report file.
func (c *Client) DownloadURL(name string) string {
	return c.config.BaseURL + "/download/" + url.PathEscape(name)
}

// =============================================================================
// CHAT QUERY
// =============================================================================

// Query sends a chat query and decodes the backend envelope. A body that is
// not a JSON envelope is returned verbatim as plain text.
func (c *Client) Query(ctx context.Context, text string) (*QueryResult, error) {
	if c.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.QueryTimeout)
		defer cancel()
	}

	body, err := json.Marshal(QueryRequest{Query: text})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.do(ctx, http.MethodPost, "/query", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("query response received")

	return decodeQuery(raw), nil
}

// decodeQuery interprets a /query body. Malformed JSON is tolerated.
func decodeQuery(raw []byte) *QueryResult {
	result := &QueryResult{Raw: raw}

	var env QueryEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		result.Text = strings.TrimSpace(string(raw))
		return result
	}

	text, isErr := env.text()
	if text == "" && env.ReportPath == "" {
		// Valid JSON but not an envelope we know; show it as-is.
		result.Text = strings.TrimSpace(string(raw))
		return result
	}

	result.Structured = true
	result.Text = text
	result.IsError = isErr
	result.ReportPath = env.ReportPath
	return result
}

// =============================================================================
// PROGRESS
// =============================================================================

// Progress fetches the freeform progress log as plain text.
func (c *Client) Progress(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProgressTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/progress", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return "", &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "progress request failed: " + resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to read progress", Cause: err}
	}
	return string(data), nil
}

// =============================================================================
// DOWNLOAD
// =============================================================================

// Download opens the PDF stream for a generated report. The caller must
// close the returned reader.
func (c *Client) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, "/download/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		drain(resp.Body)
		return nil, ErrReportNotFound
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "download failed: " + resp.Status,
		}
	}

	// The backend answers 200 with a JSON error when the file is missing.
	if isJSON(resp.Header.Get("Content-Type")) {
		defer resp.Body.Close()
		var body errorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && (body.Error != "" || body.Detail != "") {
			msg := body.Error
			if msg == "" {
				msg = body.Detail
			}
			return nil, &ClientError{Type: ErrTypeNotFound, Message: "report not found", Cause: errors.New(msg)}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "download returned JSON instead of a document"}
	}

	return resp.Body, nil
}

// =============================================================================
// TEXT TO SPEECH
// =============================================================================

// Speak requests synthesized audio for text.
func (c *Client) Speak(ctx context.Context, text string) (*Audio, error) {
	body, err := json.Marshal(SpeechRequest{Text: text})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.do(ctx, http.MethodPost, "/text-to-speech", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "speech request failed: " + resp.Status,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSON(contentType) {
		var body errorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "speech request failed", Cause: errors.New(body.Error)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read audio", Cause: err}
	}
	if len(data) == 0 {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "empty audio payload"}
	}

	return &Audio{Data: data, ContentType: contentType}, nil
}

// =============================================================================
// TRANSPORT HELPERS
// =============================================================================

// do issues a request against the backend origin. JSON bodies get the
// matching content type.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, &ClientError{Type: ErrTypeConnection, Message: "request canceled", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "backend is not reachable", Cause: err}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	return resp, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func drain(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

// IsUnreachable checks if an error indicates the backend could not be reached.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsNotFound checks if an error is a missing-report error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return false
}
