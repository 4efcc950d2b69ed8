package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tileswap/go/internal/models"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/rs/zerolog/log"
)

// Config holds gateway configuration
type Config struct {
	ConnectionConfig ConnectionConfig
	Puzzle           puzzle.Config
}

// Service drives one board synchronizer from any number of websocket views.
// All views share the board; each view has its own notice dialog.
type Service struct {
	connectionManager *ConnectionManager
	renderer          *BroadcastRenderer
	synchronizer      *puzzle.Synchronizer
	websocketHandler  *WebSocketHandler
	stateHandler      *StateHandler

	// initAlert is replayed to every view when the board failed to initialize.
	initAlert string

	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// NewService wires the gateway and initializes the board. A bad initial board is
// alerted to views and returned, but the service stays usable so views can connect.
func NewService(config Config, transport puzzle.Transport, observer puzzle.MoveObserver, clock clockwork.Clock) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig)
	renderer := NewBroadcastRenderer(cm)

	synchronizer := puzzle.NewSynchronizer(config.Puzzle, puzzle.Deps{
		Renderer:  renderer,
		Notifier:  renderer,
		Transport: transport,
		Observer:  observer,
		Clock:     clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		connectionManager: cm,
		renderer:          renderer,
		synchronizer:      synchronizer,
		websocketHandler:  NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(synchronizer),
		ctx:               ctx,
		cancel:            cancel,
	}
	cm.SetHandler(s)

	if err := synchronizer.Init(); err != nil {
		s.initAlert = puzzle.MsgInitBoardMissing
		return s, err
	}
	return s, nil
}

// Start runs the broadcast loop until ctx is done, then waits for in-flight moves.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting board gateway")

	go func() {
		<-ctx.Done()
		s.cancel()
	}()

	s.connectionManager.Start(ctx)
	s.pending.Wait()

	log.Info().Msg("board gateway stopped")
	return nil
}

// OnConnect brings a new view up to date. A view joining a board that never
// initialized gets the init alert right after its snapshot.
func (s *Service) OnConnect(c *Connection) {
	c.emit(EventTypeSnapshot, SnapshotPayload{
		Board:     s.synchronizer.Snapshot(),
		Modal:     c.Dispatcher.Modal.State(),
		InitError: s.initAlert,
	})
	if s.initAlert != "" {
		c.emit(EventTypeAlert, AlertPayload{Message: s.initAlert})
	}
}

// HandleMessage dispatches one view event. Each view keeps its own drag source, so a
// drop only ever completes a drag the same view started. Drops run in the background
// so the view keeps delivering events while a move is with the authority.
func (s *Service) HandleMessage(c *Connection, msg ClientMessage) {
	switch msg.Type {
	case MessageTypeDragStart:
		if msg.Position != nil && !s.synchronizer.Locked() && models.InRange(*msg.Position) {
			c.setDragSource(*msg.Position)
		}

	case MessageTypeDragOver:
		if msg.Position != nil {
			c.emit(EventTypeDragOverAck, DragOverAckPayload{
				Position: *msg.Position,
				Accept:   s.synchronizer.DragOver(*msg.Position),
			})
		}

	case MessageTypeDrop:
		if msg.Position == nil {
			return
		}
		source, ok := c.DragSource()
		if !ok {
			log.Debug().Str("connection_id", c.ID).Msg("drop without drag start ignored")
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		target := *msg.Position
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			status, err := s.synchronizer.DropFrom(s.ctx, source, target)
			if status != puzzle.DropIgnored {
				c.clearDragSource()
			}
			if err != nil {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Str("status", status.String()).
					Msg("move did not apply")
			}
		}()

	case MessageTypeClick:
		res := c.Dispatcher.HandleClick(msg.Element)
		c.emit(EventTypeClickResult, ClickResultPayload{
			Cancelled:    res.Cancelled,
			ModalChanged: res.ModalChanged,
		})

	case MessageTypeKeyDown:
		c.Dispatcher.HandleKey(msg.Key)

	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", string(msg.Type)).
			Msg("ignoring unknown client message")
	}
}

// Synchronizer exposes the board synchronizer.
func (s *Service) Synchronizer() *puzzle.Synchronizer {
	return s.synchronizer
}

// RegisterRoutes registers all gateway routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.websocketHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterRoutes(mux)
}

// GetStats returns service statistics
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["state"] = s.synchronizer.State().String()
	return stats
}
