// Package embedding talks to the face-embedding ML service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultServiceURL = "http://localhost:8000"
	defaultTimeout    = 10 * time.Second

	// maxResponseSize bounds how much of an ML service response is read.
	maxResponseSize = 4 << 20
)

var (
	// ErrServiceUnavailable means the ML service could not be reached, timed
	// out, or failed internally. It is never reported as "no face".
	ErrServiceUnavailable = errors.New("face recognition service unavailable")
	// ErrNoFaceDetected means the service answered but found no usable face.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrInvalidImage means the capture is missing or cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// BBox is the detected face area in pixels of the submitted image.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Result is a successful extraction.
type Result struct {
	Embedding  []float32
	Confidence float64
	BBox       BBox
}

// Extractor turns a base64 image into a face embedding.
type Extractor interface {
	Extract(ctx context.Context, imageB64 string) (*Result, error)
}

// Client calls POST {baseURL}/embed.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client whose every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// embedRequest is the request body of /embed
type embedRequest struct {
	Image string `json:"image"`
}

// embedResponse is the response body of /embed. Success is optional; the
// service may answer 200 with success=false, and a missing field counts as
// success when an embedding is present.
type embedResponse struct {
	Success    *bool     `json:"success"`
	Embedding  []float32 `json:"embedding"`
	Confidence *float64  `json:"confidence"`
	BBox       *BBox     `json:"bbox"`
	Error      string    `json:"error"`
}

// errorResponse is the body of a non-2xx answer.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Extract sends the image to the ML service and returns the first face found.
func (c *Client) Extract(ctx context.Context, imageB64 string) (*Result, error) {
	if imageB64 == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidImage)
	}

	reqBody, err := json.Marshal(embedRequest{Image: imageB64})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoFaceDetected, errResp.Detail)
		}
		return nil, fmt.Errorf("%w: status %d", ErrNoFaceDetected, resp.StatusCode)
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrServiceUnavailable, err)
	}
	if embResp.Success != nil && !*embResp.Success {
		msg := embResp.Error
		if msg == "" {
			msg = "extraction failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrNoFaceDetected, msg)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrNoFaceDetected)
	}

	result := &Result{Embedding: embResp.Embedding}
	// A missing confidence means the detector did not report one; it then
	// fails the quality gate instead of passing it.
	if embResp.Confidence != nil {
		result.Confidence = *embResp.Confidence
	}
	if embResp.BBox != nil {
		result.BBox = *embResp.BBox
	}
	return result, nil
}

var _ Extractor = (*Client)(nil)
