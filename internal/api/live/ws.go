package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/server/middleware"
	"github.com/tavolohq/tavolo/internal/stream"
)

const pingTimeout = 5 * time.Second

// wsConnected mirrors the SSE ": connected" comment as a text frame, sent
// once registration completes. Event decoders drop it as an unknown type.
var wsConnected = []byte(`{"type":"CONNECTED"}`)

// ServeBoardWS subscribes the caller to one board's event stream over a
// WebSocket. Events arrive as text messages carrying the same JSON the SSE
// endpoint frames; keep-alives become protocol-level pings.
func (h *Handler) ServeBoardWS(w http.ResponseWriter, r *http.Request) {
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

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// The subscriber never sends application messages; CloseRead surfaces
	// the peer's close through ctx.
	ctx := conn.CloseRead(r.Context())

	sink := &wsSink{ctx: ctx, conn: conn}
	reg := h.registry.Register(stream.BoardScope(board.ID), userID, sink)
	defer h.registry.Unregister(reg.ID)

	if err := sink.WriteEvent(wsConnected); err != nil {
		return
	}

	<-ctx.Done()
	_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
}

// wsSink adapts a WebSocket connection to the registry sink. The connection
// serializes writes itself, so no mutex is needed here.
type wsSink struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *wsSink) WriteEvent(encoded []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageText, encoded)
}

// WriteComment maps keep-alives to protocol pings. Ping waits for the pong,
// so the wait is bounded to keep a dead peer from stalling the registry.
func (s *wsSink) WriteComment(string) error {
	ctx, cancel := context.WithTimeout(s.ctx, pingTimeout)
	defer cancel()
	return s.conn.Ping(ctx)
}
