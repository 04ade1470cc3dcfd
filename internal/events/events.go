// Package events defines the typed, self-contained notifications fanned out
// to live board and tenant subscribers after a committed mutation.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
)

type Type string

const (
	TypeTodoCreated       Type = "TODO_CREATED"
	TypeTodoUpdated       Type = "TODO_UPDATED"
	TypeTodoDeleted       Type = "TODO_DELETED"
	TypeTodoStatusChanged Type = "TODO_STATUS_CHANGED"
	TypeBoardCreated      Type = "BOARD_CREATED"
	TypeBoardUpdated      Type = "BOARD_UPDATED"
	TypeBoardDeleted      Type = "BOARD_DELETED"
)

// ErrUnknownType is returned by Decode for event types this build does not
// know. Consumers treat it as a skip, not a failure.
var ErrUnknownType = errors.New("events: unknown event type")

// Actor is the compact user reference embedded in event payloads.
type Actor struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

// TodoItem carries the full todo so a receiver can update local state without
// a follow-up fetch.
type TodoItem struct {
	ID          uuid.UUID         `json:"id"`
	BoardID     uuid.UUID         `json:"boardId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TodoStatus `json:"status"`
	Position    int               `json:"position"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Assignee    *Actor            `json:"assignee"`
	CreatedBy   Actor             `json:"createdBy"`
}

// BoardSummary is the board shape rendered in a tenant's board list.
type BoardSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   Actor     `json:"createdBy"`
	TodosCount  int       `json:"todosCount"`
}

// Payload is the closed set of event payloads. Each variant is statically
// tied to exactly one Type; the unexported method keeps the set sealed.
type Payload interface {
	eventType() Type
}

type TodoCreatedPayload struct {
	Todo TodoItem `json:"todo"`
}

type TodoUpdatedPayload struct {
	Todo    TodoItem        `json:"todo"`
	Changes map[string]bool `json:"changes"`
}

type TodoDeletedPayload struct {
	TodoID  uuid.UUID `json:"todoId"`
	BoardID uuid.UUID `json:"boardId"`
}

type TodoStatusChangedPayload struct {
	TodoID    uuid.UUID         `json:"todoId"`
	OldStatus domain.TodoStatus `json:"oldStatus"`
	NewStatus domain.TodoStatus `json:"newStatus"`
	Todo      TodoItem          `json:"todo"`
}

type BoardCreatedPayload struct {
	Board BoardSummary `json:"board"`
}

type BoardUpdatedPayload struct {
	BoardID     uuid.UUID `json:"boardId"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
}

type BoardDeletedPayload struct {
	BoardID uuid.UUID `json:"boardId"`
}

func (TodoCreatedPayload) eventType() Type       { return TypeTodoCreated }
func (TodoUpdatedPayload) eventType() Type       { return TypeTodoUpdated }
func (TodoDeletedPayload) eventType() Type       { return TypeTodoDeleted }
func (TodoStatusChangedPayload) eventType() Type { return TypeTodoStatusChanged }
func (BoardCreatedPayload) eventType() Type      { return TypeBoardCreated }
func (BoardUpdatedPayload) eventType() Type      { return TypeBoardUpdated }
func (BoardDeletedPayload) eventType() Type      { return TypeBoardDeleted }

// Event is an immutable notification of one committed state change.
type Event struct {
	Type      Type
	Payload   Payload
	Timestamp time.Time
	UserID    uuid.UUID
}

// New wraps a payload in an Event attributed to the acting user.
func New(userID uuid.UUID, p Payload) *Event {
	return &Event{
		Type:      p.eventType(),
		Payload:   p,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

func NewTodoCreated(userID uuid.UUID, todo TodoItem) *Event {
	return New(userID, TodoCreatedPayload{Todo: todo})
}

func NewTodoUpdated(userID uuid.UUID, todo TodoItem, changes map[string]bool) *Event {
	return New(userID, TodoUpdatedPayload{Todo: todo, Changes: changes})
}

func NewTodoDeleted(userID, todoID, boardID uuid.UUID) *Event {
	return New(userID, TodoDeletedPayload{TodoID: todoID, BoardID: boardID})
}

func NewTodoStatusChanged(userID uuid.UUID, oldStatus, newStatus domain.TodoStatus, todo TodoItem) *Event {
	return New(userID, TodoStatusChangedPayload{
		TodoID:    todo.ID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Todo:      todo,
	})
}

func NewBoardCreated(userID uuid.UUID, board BoardSummary) *Event {
	return New(userID, BoardCreatedPayload{Board: board})
}

func NewBoardUpdated(userID, boardID uuid.UUID, name, description *string) *Event {
	return New(userID, BoardUpdatedPayload{BoardID: boardID, Name: name, Description: description})
}

func NewBoardDeleted(userID, boardID uuid.UUID) *Event {
	return New(userID, BoardDeletedPayload{BoardID: boardID})
}

// wireEvent is the JSON envelope shared by every transport.
type wireEvent struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    uuid.UUID       `json:"userId"`
}

// Encode serializes the event to its wire form. A marshal failure is a
// programmer error and fails the whole broadcast.
func (e *Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("events.Event.Encode: payload: %w", err)
	}

	data, err := json.Marshal(wireEvent{
		Type:      e.Type,
		Payload:   payload,
		Timestamp: e.Timestamp,
		UserID:    e.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("events.Event.Encode: %w", err)
	}

	return data, nil
}

// Decode parses a wire event into its typed form. Unknown types return
// ErrUnknownType so consumers stay forward-compatible.
func Decode(data []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("events.Decode: %w", err)
	}

	var p Payload
	switch w.Type {
	case TypeTodoCreated:
		p = new(TodoCreatedPayload)
	case TypeTodoUpdated:
		p = new(TodoUpdatedPayload)
	case TypeTodoDeleted:
		p = new(TodoDeletedPayload)
	case TypeTodoStatusChanged:
		p = new(TodoStatusChangedPayload)
	case TypeBoardCreated:
		p = new(BoardCreatedPayload)
	case TypeBoardUpdated:
		p = new(BoardUpdatedPayload)
	case TypeBoardDeleted:
		p = new(BoardDeletedPayload)
	default:
		return nil, fmt.Errorf("events.Decode: %q: %w", w.Type, ErrUnknownType)
	}

	if err := json.Unmarshal(w.Payload, p); err != nil {
		return nil, fmt.Errorf("events.Decode: payload for %s: %w", w.Type, err)
	}

	return &Event{
		Type:      w.Type,
		Payload:   deref(p),
		Timestamp: w.Timestamp,
		UserID:    w.UserID,
	}, nil
}

// deref converts the decoded *T payload back to its value form so Payload
// values compare and switch the same way whether built locally or decoded.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *TodoCreatedPayload:
		return *v
	case *TodoUpdatedPayload:
		return *v
	case *TodoDeletedPayload:
		return *v
	case *TodoStatusChangedPayload:
		return *v
	case *BoardCreatedPayload:
		return *v
	case *BoardUpdatedPayload:
		return *v
	case *BoardDeletedPayload:
		return *v
	default:
		return p
	}
}
