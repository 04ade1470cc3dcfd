// Package live exposes the streaming endpoints. Each handler authenticates
// the subscriber, checks workspace membership, registers an SSE or WebSocket
// sink with the stream registry, and then blocks until the peer goes away.
package live

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
	"github.com/tavolohq/tavolo/internal/server/middleware"
	"github.com/tavolohq/tavolo/internal/stream"
)

// DataStore is the subset of the store the stream endpoints need to resolve
// scopes and authorize subscribers. *postgres.Store satisfies it.
type DataStore interface {
	Tenants() domain.TenantRepository
	Memberships() domain.MembershipRepository
	Boards() domain.BoardRepository
}

// Handler serves the board- and tenant-scope subscription endpoints.
type Handler struct {
	store    DataStore
	registry *stream.Registry
}

func NewHandler(store DataStore, registry *stream.Registry) *Handler {
	return &Handler{store: store, registry: registry}
}

// ServeBoardSSE subscribes the caller to one board's event stream over SSE.
func (h *Handler) ServeBoardSSE(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	board, err := h.store.Boards().GetByID(r.Context(), boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("stream board lookup")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := h.store.Memberships().Get(r.Context(), userID, board.TenantID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		log.Error().Err(err).Msg("stream membership lookup")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.serveSSE(w, r, stream.BoardScope(board.ID), userID)
}

// ServeTenantSSE subscribes the caller to a workspace's board-list stream.
func (h *Handler) ServeTenantSSE(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tenant, err := h.store.Tenants().GetBySlug(r.Context(), chi.URLParam(r, "tenantSlug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("stream tenant lookup")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := h.store.Memberships().Get(r.Context(), userID, tenant.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		log.Error().Err(err).Msg("stream membership lookup")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.serveSSE(w, r, stream.TenantScope(tenant.ID), userID)
}

func (h *Handler) serveSSE(w http.ResponseWriter, r *http.Request, scope stream.Scope, userID uuid.UUID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	// Nginx buffers responses by default, which stalls SSE.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := &sseSink{w: w, flusher: flusher}
	conn := h.registry.Register(scope, userID, sink)
	defer h.registry.Unregister(conn.ID)

	// Confirm the subscription before any event can arrive.
	if err := sink.WriteComment(events.CommentConnected); err != nil {
		return
	}

	<-r.Context().Done()
}

// sseSink writes SSE frames to one subscriber. The registry may call it from
// broadcast and keep-alive goroutines concurrently.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) WriteEvent(encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(events.DataFrame(encoded)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) WriteComment(comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(events.CommentFrame(comment)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
