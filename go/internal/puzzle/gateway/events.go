package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/tileswap/go/internal/notice"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
)

// ViewEvent is the envelope for everything pushed to a board view
type ViewEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of view event
type EventType string

const (
	EventTypeSnapshot     EventType = "snapshot"
	EventTypeGridRendered EventType = "grid_rendered"
	EventTypeTurnsChanged EventType = "turns_changed"
	EventTypeResultShown  EventType = "result_shown"
	EventTypeAlert        EventType = "alert"
	EventTypeModalChanged EventType = "modal_changed"
	EventTypeDragOverAck  EventType = "dragover_ack"
	EventTypeClickResult  EventType = "click_result"
)

type SnapshotPayload struct {
	Board     puzzle.Snapshot   `json:"board"`
	Modal     notice.ModalState `json:"modal"`
	InitError string            `json:"init_error,omitempty"`
}

type GridRenderedPayload struct {
	Cells []puzzle.Cell `json:"cells"`
}

type TurnsChangedPayload struct {
	Turns int `json:"turns"`
	Limit int `json:"limit,omitempty"`
}

type ResultShownPayload struct {
	Next string `json:"next,omitempty"`
}

type AlertPayload struct {
	Message string `json:"message"`
}

type DragOverAckPayload struct {
	Position int  `json:"position"`
	Accept   bool `json:"accept"`
}

type ClickResultPayload struct {
	Cancelled    bool `json:"cancelled"`
	ModalChanged bool `json:"modal_changed"`
}

// NewViewEvent wraps payload in an envelope with a fresh id
func NewViewEvent(eventType EventType, payload interface{}) (*ViewEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &ViewEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// MessageType identifies a message sent by a view
type MessageType string

const (
	MessageTypeDragStart MessageType = "dragstart"
	MessageTypeDragOver  MessageType = "dragover"
	MessageTypeDrop      MessageType = "drop"
	MessageTypeClick     MessageType = "click"
	MessageTypeKeyDown   MessageType = "keydown"
)

// ClientMessage is a gesture or UI event reported by a view
type ClientMessage struct {
	Type     MessageType     `json:"type"`
	Position *int            `json:"position,omitempty"`
	Key      string          `json:"key,omitempty"`
	Element  *notice.Element `json:"element,omitempty"`
}
