package puzzle_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/tileswap/go/clients"
)

// SwapRequest asks the authority to swap grid positions A and B.
type SwapRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

// SwapResponse is the authority's view of the game after a swap.
type SwapResponse struct {
	Board  []int  `json:"board"`
	Turns  int    `json:"turns"`
	Limit  int    `json:"limit"`
	Solved bool   `json:"solved"`
	Passed bool   `json:"passed"`
	Locked bool   `json:"locked"`
	Next   string `json:"next,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SwapError is a swap the authority refused. Message is empty when the
// response carried no readable error string.
type SwapError struct {
	StatusCode int
	Message    string
}

func (e *SwapError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("swap rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("swap rejected with status %d: %s", e.StatusCode, e.Message)
}

// Swap submits one move. requestID is sent as X-Request-ID when non-empty.
func (c *PuzzleClient) Swap(ctx context.Context, req SwapRequest, requestID string) (*SwapResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	var extra map[string]string
	if requestID != "" {
		extra = map[string]string{RequestIDHeader: requestID}
	}

	body, err := c.Post(ctx, SwapEndpoint, bytes.NewReader(payload), extra)
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) {
			return nil, &SwapError{StatusCode: apiErr.StatusCode, Message: decodeErrorMessage(apiErr.Body)}
		}
		return nil, fmt.Errorf("failed to submit swap: %w", err)
	}

	var response SwapResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return &response, nil
}

func decodeErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error
}
