// Package poseclient talks to the external pose-estimation sidecar. The
// sidecar runs the pre-trained landmark model; this client only ships a
// JPEG frame over and decodes the nine joints from the response.
package poseclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/httputil"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the landmark sidecar.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the sidecar at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// detectResponse mirrors the sidecar's JSON. Detected=false means the
// model found no body in the frame.
type detectResponse struct {
	Detected bool           `json:"detected"`
	Joints   *pose.JointSet `json:"joints,omitempty"`
}

// DetectJoints sends one JPEG frame for landmark detection. A frame with
// no detectable body returns (nil, nil).
func (c *Client) DetectJoints(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/detect", bytes.NewReader(jpegFrame))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose service request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, fmt.Errorf("pose service: %w", err)
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode pose response: %w", err)
	}

	if !dr.Detected || dr.Joints == nil {
		return nil, nil
	}
	return dr.Joints, nil
}
