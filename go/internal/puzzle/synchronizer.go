package puzzle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tileswap/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Deps are the capabilities a Synchronizer drives. Observer and Clock are optional.
type Deps struct {
	Renderer  Renderer
	Notifier  Notifier
	Transport Transport
	Observer  MoveObserver
	Clock     clockwork.Clock
}

// Synchronizer owns the local board for one page view and reconciles it with the authority.
// The local board only ever changes by wholesale replacement with an authority response.
type Synchronizer struct {
	cfg       Config
	renderer  Renderer
	notifier  Notifier
	transport Transport
	observer  MoveObserver
	clock     clockwork.Clock

	mu            sync.Mutex
	ready         bool
	board         models.Board
	turns         int
	limit         int
	resultVisible bool
	next          string
	pending       *int // drag source awaiting a drop
	inFlight      int
}

// NewSynchronizer wires a synchronizer; call Init before feeding it gestures.
func NewSynchronizer(cfg Config, deps Deps) *Synchronizer {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Synchronizer{
		cfg:       cfg,
		renderer:  deps.Renderer,
		notifier:  deps.Notifier,
		transport: deps.Transport,
		observer:  deps.Observer,
		clock:     clock,
		turns:     cfg.Turns,
		limit:     cfg.Limit,
	}
}

// Init checks the injected board and renders it once. A bad board is reported to
// the user and nothing is rendered.
func (s *Synchronizer) Init() error {
	if err := models.ValidateBoard(s.cfg.InitialBoard); err != nil {
		log.Error().Err(err).Msg("initial board rejected")
		s.notifier.Alert(MsgInitBoardMissing)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.board = s.cfg.InitialBoard.Clone()
	s.ready = true
	s.render()
	s.renderer.SetTurns(s.turns, s.limit)
	if s.cfg.Solved {
		s.showResult(s.cfg.NextURL)
	}

	log.Info().
		Bool("locked", s.cfg.Locked).
		Int("turns", s.turns).
		Int("limit", s.limit).
		Msg("puzzle board initialized")
	return nil
}

// Cells builds the render list for a board in row-major order.
func (s *Synchronizer) Cells(board models.Board) []Cell {
	cells := make([]Cell, len(board))
	for i, id := range board {
		cells[i] = Cell{
			Position:  i,
			TileID:    id,
			ImageURL:  models.TileImage(s.cfg.ImageBase, id),
			Draggable: !s.cfg.Locked,
		}
	}
	return cells
}

// render must be called with mu held.
func (s *Synchronizer) render() {
	s.renderer.RenderGrid(s.Cells(s.board))
}

// showResult must be called with mu held.
func (s *Synchronizer) showResult(next string) {
	s.resultVisible = true
	s.next = next
	s.renderer.ShowResult(next)
}

// DragStart records pos as the source of the next drop.
func (s *Synchronizer) DragStart(pos int) {
	if s.cfg.Locked || !models.InRange(pos) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	s.pending = &pos
	log.Debug().Int("source", pos).Msg("drag started")
}

// DragOver reports whether the view should suppress its default drag handling,
// which is what lets a drop land. Locked boards never accept drops.
func (s *Synchronizer) DragOver(pos int) bool {
	return !s.cfg.Locked
}

// Drop submits the pending drag as a move onto target and blocks for the round trip.
// Drops without a distinct pending source are ignored without a network call.
// Rejections and failures are alerted to the user and also returned.
func (s *Synchronizer) Drop(ctx context.Context, target int) (DropStatus, error) {
	return s.drop(ctx, nil, target)
}

// DropFrom is Drop for callers that track the drag source themselves, one per view.
// The synchronizer's own pending source is neither read nor cleared.
func (s *Synchronizer) DropFrom(ctx context.Context, source, target int) (DropStatus, error) {
	return s.drop(ctx, &source, target)
}

func (s *Synchronizer) drop(ctx context.Context, from *int, target int) (DropStatus, error) {
	if s.cfg.Locked {
		return DropIgnored, nil
	}

	shared := from == nil
	s.mu.Lock()
	if shared {
		from = s.pending
	}
	if !s.ready || from == nil || !models.InRange(*from) || !models.InRange(target) {
		s.mu.Unlock()
		return DropIgnored, nil
	}
	source := *from
	if source == target {
		s.mu.Unlock()
		return DropIgnored, nil
	}
	if s.cfg.GuardInFlight && s.inFlight > 0 {
		s.mu.Unlock()
		log.Debug().Int("source", source).Int("target", target).Msg("drop ignored while move in flight")
		return DropIgnored, nil
	}

	intent := MoveIntent{
		ID:          uuid.New(),
		Source:      source,
		Target:      target,
		RequestedAt: s.clock.Now(),
	}
	s.inFlight++
	s.mu.Unlock()

	log.Debug().
		Str("move_id", intent.ID.String()).
		Int("source", source).
		Int("target", target).
		Msg("submitting move")

	result, err := s.transport.SubmitMove(ctx, intent)
	outcome := s.resolve(intent, result, err, shared)

	if s.observer != nil {
		s.observer.MoveResolved(ctx, outcome)
	}
	return outcome.Status, outcome.Err
}

// resolve applies a response and returns the synchronizer to idle on every path.
// clearPending drops the shared drag source; DropFrom callers own theirs.
func (s *Synchronizer) resolve(intent MoveIntent, result *MoveResult, err error, clearPending bool) MoveOutcome {
	outcome := MoveOutcome{Intent: intent, Result: result}

	if err == nil && (result == nil || models.ValidateBoard(result.Board) != nil) {
		err = ErrMalformedResult
	}

	var alert string

	s.mu.Lock()
	s.inFlight--
	if clearPending {
		s.pending = nil
	}
	outcome.Duration = s.clock.Since(intent.RequestedAt)

	var rejection *RejectionError
	switch {
	case errors.As(err, &rejection):
		outcome.Status = DropRejected
		outcome.Err = err
		alert = rejection.UserMessage()
	case err != nil:
		outcome.Status = DropFailed
		outcome.Err = fmt.Errorf("submit move %s: %w", intent.ID, err)
		alert = MsgSwapFailed
	default:
		outcome.Status = DropApplied
		s.turns = result.Turns
		if result.Limit > 0 {
			s.limit = result.Limit
		}
		s.renderer.SetTurns(s.turns, s.limit)
		s.board = result.Board.Clone()
		s.render()
		if result.Passed {
			s.showResult(result.Next)
		} else if result.Locked {
			alert = MsgTurnLimit
		}
	}
	s.mu.Unlock()

	ev := log.Info()
	if outcome.Err != nil {
		ev = log.Warn().Err(outcome.Err)
	}
	ev.Str("move_id", intent.ID.String()).
		Int("source", intent.Source).
		Int("target", intent.Target).
		Str("status", outcome.Status.String()).
		Dur("duration", outcome.Duration).
		Msg("move resolved")

	if alert != "" {
		s.notifier.Alert(alert)
	}
	return outcome
}

// State reports whether any move is still waiting on the authority.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		return StateAwaitingResponse
	}
	return StateIdle
}

// Board returns a copy of the current board, nil before a successful Init.
func (s *Synchronizer) Board() models.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// Locked reports the page-level lock flag.
func (s *Synchronizer) Locked() bool {
	return s.cfg.Locked
}

// Snapshot returns the current view state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	if s.inFlight > 0 {
		state = StateAwaitingResponse
	}
	snap := Snapshot{
		Turns:         s.turns,
		Limit:         s.limit,
		Locked:        s.cfg.Locked,
		ResultVisible: s.resultVisible,
		Next:          s.next,
		State:         state.String(),
	}
	if s.ready {
		snap.Cells = s.Cells(s.board)
	}
	return snap
}
