// Package verifier provides an HTTP client for the remote verification engine.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
)

const maxResponseBytes = 8 << 20

var _ core.Verifier = (*Client)(nil)

// Error is a failure reported by the engine. Message is human-readable and is
// recorded verbatim on failed jobs.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatusCode returns the status the engine answered with.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	BaseURL    string        // Required: engine base URL
	HTTPClient *http.Client  // Optional: defaults to a client with Timeout
	Timeout    time.Duration // Optional: 0 means bounded only by the caller's context
	Logger     *slog.Logger  // Optional: structured logger
}

// Client calls POST <BaseURL>/verify.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient constructs a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("verifier base URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: base + "/verify",
		http:     hc,
		logger:   logger.With("component", "verifier_client"),
	}, nil
}

type verifyRequest struct {
	Output   string            `json:"output"`
	Question string            `json:"question"`
	Tier     model.Tier        `json:"tier"`
	APIKeys  map[string]string `json:"apiKeys,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Verify sends output to the engine and returns its result document unchanged.
func (c *Client) Verify(ctx context.Context, output string, params model.VerifyParams) (json.RawMessage, error) {
	body, err := json.Marshal(verifyRequest{
		Output:   output,
		Question: params.Question,
		Tier:     params.Tier,
		APIKeys:  params.APIKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read verify response: %w", err)
	}

	c.logger.DebugContext(ctx, "verify call finished",
		"status", resp.StatusCode,
		"tier", params.Tier,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, data)
	}
	if !json.Valid(data) {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "verification engine returned malformed JSON"}
	}

	return json.RawMessage(data), nil
}

func decodeError(status int, data []byte) *Error {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil {
		if msg := strings.TrimSpace(er.Error); msg != "" {
			return &Error{StatusCode: status, Message: msg}
		}
		if msg := strings.TrimSpace(er.Message); msg != "" {
			return &Error{StatusCode: status, Message: msg}
		}
	}

	if text := strings.TrimSpace(string(data)); text != "" && len(text) <= 512 {
		return &Error{StatusCode: status, Message: text}
	}
	return &Error{StatusCode: status, Message: fmt.Sprintf("verification engine returned status %d", status)}
}
