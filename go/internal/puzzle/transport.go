package puzzle

import (
	"context"
	"errors"

	"github.com/mcdev12/tileswap/go/clients/puzzle_client"
	"github.com/mcdev12/tileswap/go/internal/models"
)

// HTTPTransport submits moves through the authority's JSON swap endpoint.
type HTTPTransport struct {
	client *puzzle_client.PuzzleClient
}

func NewHTTPTransport(client *puzzle_client.PuzzleClient) *HTTPTransport {
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) SubmitMove(ctx context.Context, intent MoveIntent) (*MoveResult, error) {
	resp, err := t.client.Swap(ctx, puzzle_client.SwapRequest{A: intent.Source, B: intent.Target}, intent.ID.String())
	if err != nil {
		var swapErr *puzzle_client.SwapError
		if errors.As(err, &swapErr) {
			return nil, &RejectionError{StatusCode: swapErr.StatusCode, Message: swapErr.Message}
		}
		return nil, err
	}

	return &MoveResult{
		Board:  models.Board(resp.Board),
		Turns:  resp.Turns,
		Limit:  resp.Limit,
		Solved: resp.Solved,
		Passed: resp.Passed,
		Locked: resp.Locked,
		Next:   resp.Next,
	}, nil
}
