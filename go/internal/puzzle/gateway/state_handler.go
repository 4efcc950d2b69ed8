package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/rs/zerolog/log"
)

// StateHandler serves the current board over REST so a view can load before
// opening its websocket.
type StateHandler struct {
	synchronizer *puzzle.Synchronizer
}

func NewStateHandler(synchronizer *puzzle.Synchronizer) *StateHandler {
	return &StateHandler{synchronizer: synchronizer}
}

// HandleGetBoardState handles GET /api/board/state
func (h *StateHandler) HandleGetBoardState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(h.synchronizer.Snapshot()); err != nil {
		log.Error().Err(err).Msg("failed to encode board state")
	}
}

// RegisterRoutes registers REST routes with an HTTP mux
func (h *StateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/board/state", h.HandleGetBoardState)
}
