package streamclient

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/events"
)

// BoardState is a client-side replica of one board's todos, kept current by
// applying stream events. Creation and update both upsert, so the replica
// converges even when an event races the initial REST snapshot.
type BoardState struct {
	mu    sync.RWMutex
	todos map[uuid.UUID]events.TodoItem
}

func NewBoardState() *BoardState {
	return &BoardState{todos: make(map[uuid.UUID]events.TodoItem)}
}

// Seed loads the initial REST snapshot. Items already upserted by an earlier
// event are not overwritten; the event is newer than the snapshot.
func (s *BoardState) Seed(items []events.TodoItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if _, ok := s.todos[item.ID]; !ok {
			s.todos[item.ID] = item
		}
	}
}

// Apply folds one event into the replica. Events for other boards or event
// types the replica does not track are ignored.
func (s *BoardState) Apply(ev *events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p := ev.Payload.(type) {
	case events.TodoCreatedPayload:
		s.todos[p.Todo.ID] = p.Todo
	case events.TodoUpdatedPayload:
		s.todos[p.Todo.ID] = p.Todo
	case events.TodoStatusChangedPayload:
		s.todos[p.Todo.ID] = p.Todo
	case events.TodoDeletedPayload:
		delete(s.todos, p.TodoID)
	}
}

// Handlers returns a Handlers set that routes todo events into the replica.
// Callers can overlay their own callbacks afterwards.
func (s *BoardState) Handlers() Handlers {
	return Handlers{
		TodoCreated:       func(p events.TodoCreatedPayload) { s.Apply(&events.Event{Type: events.TypeTodoCreated, Payload: p}) },
		TodoUpdated:       func(p events.TodoUpdatedPayload) { s.Apply(&events.Event{Type: events.TypeTodoUpdated, Payload: p}) },
		TodoDeleted:       func(p events.TodoDeletedPayload) { s.Apply(&events.Event{Type: events.TypeTodoDeleted, Payload: p}) },
		TodoStatusChanged: func(p events.TodoStatusChangedPayload) { s.Apply(&events.Event{Type: events.TypeTodoStatusChanged, Payload: p}) },
	}
}

// Todos returns the replica's todos ordered by board position.
func (s *BoardState) Todos() []events.TodoItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.TodoItem, 0, len(s.todos))
	for _, item := range s.todos {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Get returns one todo by ID.
func (s *BoardState) Get(id uuid.UUID) (events.TodoItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.todos[id]
	return item, ok
}

// Len returns the number of todos in the replica.
func (s *BoardState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}
