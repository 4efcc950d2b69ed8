package puzzle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/tileswap/go/internal/models"
)

// Config is fixed for the lifetime of a Synchronizer.
type Config struct {
	InitialBoard models.Board
	Locked       bool
	ImageBase    string

	// Display state the authority embedded alongside the board.
	Turns   int
	Limit   int
	Solved  bool
	NextURL string

	// GuardInFlight turns drops into no-ops while a move is outstanding.
	// Off by default: overlapping moves resolve last-response-wins.
	GuardInFlight bool
}

// Cell is one rendered grid slot.
type Cell struct {
	Position  int    `json:"position"`
	TileID    int    `json:"tile_id"`
	ImageURL  string `json:"image_url"`
	Draggable bool   `json:"draggable"`
}

// MoveIntent is a requested swap of two grid positions. It lives for one round trip.
type MoveIntent struct {
	ID          uuid.UUID `json:"id"`
	Source      int       `json:"source"`
	Target      int       `json:"target"`
	RequestedAt time.Time `json:"requested_at"`
}

// MoveResult is the authority's answer to an accepted move.
type MoveResult struct {
	Board  models.Board
	Turns  int
	Limit  int
	Solved bool
	Passed bool
	Locked bool
	Next   string
}

// DropStatus describes how a drop gesture ended.
type DropStatus int

const (
	DropIgnored DropStatus = iota
	DropApplied
	DropRejected
	DropFailed
)

func (s DropStatus) String() string {
	switch s {
	case DropApplied:
		return "applied"
	case DropRejected:
		return "rejected"
	case DropFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// State is the synchronizer's request state.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

// MoveOutcome is reported to a MoveObserver once a submitted move resolves.
type MoveOutcome struct {
	Intent   MoveIntent
	Status   DropStatus
	Result   *MoveResult
	Err      error
	Duration time.Duration
}

// Snapshot is the current view state, used to bring late viewers up to date.
type Snapshot struct {
	Cells         []Cell `json:"cells"`
	Turns         int    `json:"turns"`
	Limit         int    `json:"limit"`
	Locked        bool   `json:"locked"`
	ResultVisible bool   `json:"result_visible"`
	Next          string `json:"next,omitempty"`
	State         string `json:"state"`
}

// Renderer draws the board and its surrounding display.
type Renderer interface {
	RenderGrid(cells []Cell)
	// SetTurns shows the turn counter against the current limit; limit 0 means none.
	SetTurns(turns, limit int)
	ShowResult(next string)
}

// Notifier surfaces a blocking, user-visible message.
type Notifier interface {
	Alert(msg string)
}

// Transport sends a move to the remote authority.
// A refusal by the authority must be reported as *RejectionError.
type Transport interface {
	SubmitMove(ctx context.Context, intent MoveIntent) (*MoveResult, error)
}

// MoveObserver is told about every move that reached the authority.
type MoveObserver interface {
	MoveResolved(ctx context.Context, outcome MoveOutcome)
}
