package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/tileswap/go/internal/models"
	"github.com/mcdev12/tileswap/go/internal/notice"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportFunc func(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error)

func (f transportFunc) SubmitMove(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error) {
	return f(ctx, intent)
}

func sequentialBoard() models.Board {
	b := make(models.Board, models.BoardSize)
	for i := range b {
		b[i] = i
	}
	return b
}

func swapResponder(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error) {
	board := sequentialBoard()
	board[intent.Source], board[intent.Target] = board[intent.Target], board[intent.Source]
	return &puzzle.MoveResult{Board: board, Turns: 1}, nil
}

type recordingTransport struct {
	mu      sync.Mutex
	intents []puzzle.MoveIntent
}

func (r *recordingTransport) SubmitMove(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error) {
	r.mu.Lock()
	r.intents = append(r.intents, intent)
	r.mu.Unlock()
	res, err := swapResponder(ctx, intent)
	if res != nil {
		res.Limit = 10
	}
	return res, err
}

func (r *recordingTransport) calls() []puzzle.MoveIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]puzzle.MoveIntent(nil), r.intents...)
}

func startGateway(t *testing.T, cfg puzzle.Config, transport puzzle.Transport) (*Service, *httptest.Server) {
	t.Helper()

	svc, err := NewService(Config{ConnectionConfig: DefaultConnectionConfig(), Puzzle: cfg}, transport, nil, nil)
	require.NoError(t, err)
	return svc, serveGateway(t, svc)
}

func serveGateway(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Start(ctx)
		close(done)
	}()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func dialBoard(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/board"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads until an event of the given type satisfies match.
func readEvent(t *testing.T, conn *websocket.Conn, eventType EventType, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", eventType)

		var event ViewEvent
		require.NoError(t, json.Unmarshal(data, &event))
		if event.Type == eventType && (match == nil || match(event.Data)) {
			return event.Data
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func pos(i int) *int { return &i }

func TestSnapshotOnConnect(t *testing.T) {
	_, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard(), Turns: 4, Limit: 25, ImageBase: "/img/"}, transportFunc(swapResponder))
	conn := dialBoard(t, srv)

	var snap SnapshotPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeSnapshot, nil), &snap))
	require.Len(t, snap.Board.Cells, models.BoardSize)
	assert.Equal(t, "/img/7.jpg", snap.Board.Cells[7].ImageURL)
	assert.Equal(t, 4, snap.Board.Turns)
	assert.Equal(t, 25, snap.Board.Limit)
	assert.False(t, snap.Modal.Active)
}

func TestDropBroadcastsAuthorityBoard(t *testing.T) {
	_, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard()}, transportFunc(swapResponder))
	conn := dialBoard(t, srv)
	watcher := dialBoard(t, srv)
	readEvent(t, conn, EventTypeSnapshot, nil)
	readEvent(t, watcher, EventTypeSnapshot, nil)

	send(t, conn, ClientMessage{Type: MessageTypeDragStart, Position: pos(5)})
	send(t, conn, ClientMessage{Type: MessageTypeDrop, Position: pos(24)})

	for _, c := range []*websocket.Conn{conn, watcher} {
		readEvent(t, c, EventTypeTurnsChanged, func(raw json.RawMessage) bool {
			var p TurnsChangedPayload
			return json.Unmarshal(raw, &p) == nil && p.Turns == 1
		})
		data := readEvent(t, c, EventTypeGridRendered, func(raw json.RawMessage) bool {
			var p GridRenderedPayload
			return json.Unmarshal(raw, &p) == nil && len(p.Cells) == models.BoardSize && p.Cells[5].TileID == 24
		})
		var grid GridRenderedPayload
		require.NoError(t, json.Unmarshal(data, &grid))
		assert.Equal(t, "24.jpg", grid.Cells[5].ImageURL)
		assert.Equal(t, "5.jpg", grid.Cells[24].ImageURL)
	}
}

func TestDropOnlyCompletesOwnDrag(t *testing.T) {
	transport := &recordingTransport{}
	_, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard()}, transport)
	viewA := dialBoard(t, srv)
	viewB := dialBoard(t, srv)
	readEvent(t, viewA, EventTypeSnapshot, nil)
	readEvent(t, viewB, EventTypeSnapshot, nil)

	send(t, viewA, ClientMessage{Type: MessageTypeDragStart, Position: pos(5)})
	send(t, viewB, ClientMessage{Type: MessageTypeDrop, Position: pos(24)})

	// messages on one connection are handled in order, so the ack means the drop was seen
	send(t, viewB, ClientMessage{Type: MessageTypeDragOver, Position: pos(24)})
	readEvent(t, viewB, EventTypeDragOverAck, nil)
	assert.Empty(t, transport.calls())

	send(t, viewA, ClientMessage{Type: MessageTypeDrop, Position: pos(24)})
	data := readEvent(t, viewA, EventTypeTurnsChanged, func(raw json.RawMessage) bool {
		var p TurnsChangedPayload
		return json.Unmarshal(raw, &p) == nil && p.Turns == 1
	})
	var turns TurnsChangedPayload
	require.NoError(t, json.Unmarshal(data, &turns))
	assert.Equal(t, 10, turns.Limit)

	calls := transport.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 5, calls[0].Source)
	assert.Equal(t, 24, calls[0].Target)
}

func TestRejectedDropAlertsViews(t *testing.T) {
	reject := transportFunc(func(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error) {
		return nil, &puzzle.RejectionError{StatusCode: http.StatusBadRequest, Message: "invalid move"}
	})
	svc, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard()}, reject)
	conn := dialBoard(t, srv)
	readEvent(t, conn, EventTypeSnapshot, nil)

	send(t, conn, ClientMessage{Type: MessageTypeDragStart, Position: pos(1)})
	send(t, conn, ClientMessage{Type: MessageTypeDrop, Position: pos(2)})

	var alert AlertPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeAlert, nil), &alert))
	assert.Equal(t, "invalid move", alert.Message)
	assert.Equal(t, sequentialBoard(), svc.Synchronizer().Board())
}

func TestDragOverAck(t *testing.T) {
	_, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard(), Locked: true}, transportFunc(swapResponder))
	conn := dialBoard(t, srv)
	readEvent(t, conn, EventTypeSnapshot, nil)

	send(t, conn, ClientMessage{Type: MessageTypeDragOver, Position: pos(3)})

	var ack DragOverAckPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeDragOverAck, nil), &ack))
	assert.Equal(t, 3, ack.Position)
	assert.False(t, ack.Accept)
}

func TestNoticeModalPerConnection(t *testing.T) {
	_, srv := startGateway(t, puzzle.Config{InitialBoard: sequentialBoard()}, transportFunc(swapResponder))
	conn := dialBoard(t, srv)
	readEvent(t, conn, EventTypeSnapshot, nil)

	send(t, conn, ClientMessage{Type: MessageTypeClick, Element: &notice.Element{
		Classes: []string{notice.ClassNoticeLink},
		Attrs:   map[string]string{notice.AttrTitle: "Exam", notice.AttrDate: "Mon", notice.AttrContent: "Room 1"},
	}})

	var state notice.ModalState
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeModalChanged, nil), &state))
	assert.True(t, state.Active)
	assert.Equal(t, "Exam", state.Title)

	var click ClickResultPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeClickResult, nil), &click))
	assert.True(t, click.ModalChanged)
	assert.False(t, click.Cancelled)

	send(t, conn, ClientMessage{Type: MessageTypeKeyDown, Key: notice.KeyEscape})
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeModalChanged, nil), &state))
	assert.False(t, state.Active)
	assert.True(t, state.AriaHidden)
}

func TestBoardStateEndpoint(t *testing.T) {
	svc, err := NewService(Config{ConnectionConfig: DefaultConnectionConfig(), Puzzle: puzzle.Config{InitialBoard: sequentialBoard(), Turns: 2}}, transportFunc(swapResponder), nil, nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/board/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap puzzle.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Cells, models.BoardSize)
	assert.Equal(t, 2, snap.Turns)
	assert.Equal(t, "idle", snap.State)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/board/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewServiceWithBadBoard(t *testing.T) {
	transport := &recordingTransport{}
	svc, err := NewService(Config{ConnectionConfig: DefaultConnectionConfig(), Puzzle: puzzle.Config{InitialBoard: models.Board{1, 2}}}, transport, nil, nil)
	require.ErrorIs(t, err, models.ErrInvalidBoard)
	require.NotNil(t, svc)
	assert.Nil(t, svc.Synchronizer().Snapshot().Cells)

	srv := serveGateway(t, svc)
	conn := dialBoard(t, srv)

	var snap SnapshotPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeSnapshot, nil), &snap))
	assert.Nil(t, snap.Board.Cells)
	assert.Equal(t, puzzle.MsgInitBoardMissing, snap.InitError)

	var alert AlertPayload
	require.NoError(t, json.Unmarshal(readEvent(t, conn, EventTypeAlert, nil), &alert))
	assert.Equal(t, puzzle.MsgInitBoardMissing, alert.Message)

	send(t, conn, ClientMessage{Type: MessageTypeDragStart, Position: pos(0)})
	send(t, conn, ClientMessage{Type: MessageTypeDrop, Position: pos(1)})
	send(t, conn, ClientMessage{Type: MessageTypeDragOver, Position: pos(1)})
	readEvent(t, conn, EventTypeDragOverAck, nil)
	assert.Empty(t, transport.calls())
}

func TestStartWaitsForInFlightDrop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gated := transportFunc(func(ctx context.Context, intent puzzle.MoveIntent) (*puzzle.MoveResult, error) {
		close(entered)
		<-release
		return swapResponder(ctx, intent)
	})

	svc, err := NewService(Config{ConnectionConfig: DefaultConnectionConfig(), Puzzle: puzzle.Config{InitialBoard: sequentialBoard()}}, gated, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = svc.Start(ctx)
		close(done)
	}()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dialBoard(t, srv)
	readEvent(t, conn, EventTypeSnapshot, nil)
	send(t, conn, ClientMessage{Type: MessageTypeDragStart, Position: pos(0)})
	send(t, conn, ClientMessage{Type: MessageTypeDrop, Position: pos(1)})

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("move never reached the transport")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Start returned while a move was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after the move resolved")
	}
	assert.Equal(t, 1, svc.Synchronizer().Board()[0])
}
