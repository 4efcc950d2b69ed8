package puzzle

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	MsgInitBoardMissing = "Puzzle init board missing"
	MsgSwapFailed       = "swap failed"
	MsgTurnLimit        = "Turn limit exceeded. Reset or change limit."
)

// ErrMalformedResult is returned when a success response carries an unusable board.
var ErrMalformedResult = errors.New("malformed move result")

// RejectionError is a move the authority refused with a non-success status.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("move rejected (status %d): %s", e.StatusCode, e.UserMessage())
}

// UserMessage is the authority's reason, or the generic fallback.
func (e *RejectionError) UserMessage() string {
	if e.Message == "" {
		return MsgSwapFailed
	}
	return e.Message
}
