package gateway

import (
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/rs/zerolog/log"
)

// BroadcastRenderer renders the board by pushing events to every connected view.
// It implements puzzle.Renderer and puzzle.Notifier.
type BroadcastRenderer struct {
	cm *ConnectionManager
}

func NewBroadcastRenderer(cm *ConnectionManager) *BroadcastRenderer {
	return &BroadcastRenderer{cm: cm}
}

func (r *BroadcastRenderer) RenderGrid(cells []puzzle.Cell) {
	r.broadcast(EventTypeGridRendered, GridRenderedPayload{Cells: cells})
}

func (r *BroadcastRenderer) SetTurns(turns, limit int) {
	r.broadcast(EventTypeTurnsChanged, TurnsChangedPayload{Turns: turns, Limit: limit})
}

func (r *BroadcastRenderer) ShowResult(next string) {
	r.broadcast(EventTypeResultShown, ResultShownPayload{Next: next})
}

func (r *BroadcastRenderer) Alert(msg string) {
	r.broadcast(EventTypeAlert, AlertPayload{Message: msg})
}

func (r *BroadcastRenderer) broadcast(eventType EventType, payload interface{}) {
	event, err := NewViewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build view event")
		return
	}
	r.cm.Broadcast(event)
}
