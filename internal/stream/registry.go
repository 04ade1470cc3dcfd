// Package stream holds the in-memory registry of live subscriber connections
// and the fan-out that keeps board and tenant views synchronized.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tavolohq/tavolo/internal/events"
)

type ScopeKind string

const (
	ScopeKindBoard  ScopeKind = "board"
	ScopeKindTenant ScopeKind = "tenant"
)

// Scope is the broadcast domain of an event: one board, or one tenant's
// board list. Board and tenant scopes are disjoint namespaces even when the
// underlying UUIDs collide.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

func BoardScope(boardID uuid.UUID) Scope {
	return Scope{Kind: ScopeKindBoard, ID: boardID}
}

func TenantScope(tenantID uuid.UUID) Scope {
	return Scope{Kind: ScopeKindTenant, ID: tenantID}
}

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID.String()
}

// Sink is one subscriber's write side, bound to its transport. WriteEvent
// delivers one encoded event; WriteComment delivers the connected sentinel
// and keep-alives. Implementations must be safe for concurrent use and must
// return an error once the peer is gone.
type Sink interface {
	WriteEvent(encoded []byte) error
	WriteComment(comment string) error
}

// Connection is one registered subscription. It is owned by the Registry
// from Register until Unregister; endpoints hold it only to pass its ID back.
type Connection struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Scope       Scope
	ConnectedAt time.Time

	sink Sink
}

// Registry is the process-wide map of scope to live connections. It is
// constructed once at service start and injected wherever broadcasts
// originate; its lifetime is the process.
type Registry struct {
	mu     sync.RWMutex
	scopes map[Scope]map[uuid.UUID]*Connection
	byID   map[uuid.UUID]*Connection

	keepAliveInterval time.Duration
	log               zerolog.Logger
}

func NewRegistry(keepAliveInterval time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		scopes:            make(map[Scope]map[uuid.UUID]*Connection),
		byID:              make(map[uuid.UUID]*Connection),
		keepAliveInterval: keepAliveInterval,
		log:               log.With().Str("component", "stream_registry").Logger(),
	}
}

// Register creates a Connection for sink under scope and adds it to the
// scope's subscriber set, creating the set if absent.
func (r *Registry) Register(scope Scope, userID uuid.UUID, sink Sink) *Connection {
	conn := &Connection{
		ID:          uuid.New(),
		UserID:      userID,
		Scope:       scope,
		ConnectedAt: time.Now(),
		sink:        sink,
	}

	r.mu.Lock()
	set, ok := r.scopes[scope]
	if !ok {
		set = make(map[uuid.UUID]*Connection)
		r.scopes[scope] = set
	}
	set[conn.ID] = conn
	r.byID[conn.ID] = conn
	total := len(set)
	r.mu.Unlock()

	r.log.Debug().
		Stringer("conn_id", conn.ID).
		Stringer("user_id", userID).
		Stringer("scope", scope).
		Int("scope_connections", total).
		Msg("connection registered")

	return conn
}

// Unregister removes the connection from whichever scope holds it. It is
// idempotent: unregistering an unknown or already-removed ID is a no-op,
// because disconnect signals race keep-alive ticks by design.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	removed := r.removeLocked(connID)
	r.mu.Unlock()

	if removed {
		r.log.Debug().Stringer("conn_id", connID).Msg("connection unregistered")
	}
}

// removeLocked deletes the connection and, when its scope set becomes empty,
// the set entry itself so the scope map cannot grow without bound.
// Caller must hold r.mu.
func (r *Registry) removeLocked(connID uuid.UUID) bool {
	conn, ok := r.byID[connID]
	if !ok {
		return false
	}

	delete(r.byID, connID)

	set, ok := r.scopes[conn.Scope]
	if ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.scopes, conn.Scope)
		}
	}

	return true
}

// Broadcast serializes the event once and writes it to every connection in
// the scope except those owned by excludeUserID (uuid.Nil excludes nobody).
// A failed write means the peer is gone: the connection is dropped from the
// set after the delivery pass, and remaining deliveries are unaffected. An
// empty scope is a cheap no-op. The only error is a serialization failure.
func (r *Registry) Broadcast(scope Scope, ev *events.Event, excludeUserID uuid.UUID) error {
	encoded, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("stream.Registry.Broadcast: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.scopes[scope]
	if len(set) == 0 {
		return nil
	}

	var sent int
	var failed []uuid.UUID
	for _, conn := range set {
		if excludeUserID != uuid.Nil && conn.UserID == excludeUserID {
			continue
		}
		if writeErr := conn.sink.WriteEvent(encoded); writeErr != nil {
			failed = append(failed, conn.ID)
			r.log.Debug().Err(writeErr).Stringer("conn_id", conn.ID).Msg("broadcast write failed, dropping connection")
			continue
		}
		sent++
	}

	// Remove failures in a second pass so the set is never mutated while
	// being iterated.
	for _, id := range failed {
		r.removeLocked(id)
	}

	r.log.Debug().
		Str("event_type", string(ev.Type)).
		Stringer("scope", scope).
		Int("sent", sent).
		Int("failed", len(failed)).
		Msg("broadcast")

	return nil
}

// KeepAlive writes a comment-only frame to every connection in the scope.
// Write failures are handled exactly like broadcast failures.
func (r *Registry) KeepAlive(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.scopes[scope]
	if len(set) == 0 {
		return
	}

	var failed []uuid.UUID
	for _, conn := range set {
		if err := conn.sink.WriteComment(events.CommentPing); err != nil {
			failed = append(failed, conn.ID)
			r.log.Debug().Err(err).Stringer("conn_id", conn.ID).Msg("keep-alive failed, dropping connection")
		}
	}

	for _, id := range failed {
		r.removeLocked(id)
	}
}

// Run ticks keep-alives for every active scope until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, scope := range r.ActiveScopes() {
				r.KeepAlive(scope)
			}
		}
	}
}

// ActiveScopes returns every scope that currently has subscribers.
func (r *Registry) ActiveScopes() []Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scopes := make([]Scope, 0, len(r.scopes))
	for scope := range r.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}

// ConnectionCount returns the number of subscribers in one scope.
func (r *Registry) ConnectionCount(scope Scope) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.scopes[scope])
}

// TotalConnections returns the number of subscribers across all scopes.
func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
