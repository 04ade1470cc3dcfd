package stream

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tavolohq/tavolo/internal/events"
)

// Relay carries envelopes between peer instances. In production it is backed
// by a Redis channel; a nil Relay means single-instance deployment.
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

// envelope is the cross-instance wire format. Origin lets each instance skip
// its own publications, which it already delivered locally.
type envelope struct {
	Origin        uuid.UUID       `json:"origin"`
	ScopeKind     ScopeKind       `json:"scopeKind"`
	ScopeID       uuid.UUID       `json:"scopeId"`
	ExcludeUserID uuid.UUID       `json:"excludeUserId"`
	Event         json.RawMessage `json:"event"`
}

// Broadcaster is what mutation handlers call after a commit. It delivers to
// the local registry and, when a relay is configured, forwards the event so
// peer instances can deliver to their own subscribers. Relay failures are
// logged and swallowed: local delivery must never depend on Redis health.
type Broadcaster struct {
	registry   *Registry
	relay      Relay // nil when running single-instance
	instanceID uuid.UUID
	log        zerolog.Logger
}

func NewBroadcaster(registry *Registry, relay Relay, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry:   registry,
		relay:      relay,
		instanceID: uuid.New(),
		log:        log.With().Str("component", "broadcaster").Logger(),
	}
}

// ToBoard fans the event out to subscribers of one board.
func (b *Broadcaster) ToBoard(ctx context.Context, boardID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error {
	return b.publish(ctx, BoardScope(boardID), ev, excludeUserID)
}

// ToTenant fans the event out to subscribers of one tenant's board list.
func (b *Broadcaster) ToTenant(ctx context.Context, tenantID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error {
	return b.publish(ctx, TenantScope(tenantID), ev, excludeUserID)
}

func (b *Broadcaster) publish(ctx context.Context, scope Scope, ev *events.Event, excludeUserID uuid.UUID) error {
	if err := b.registry.Broadcast(scope, ev, excludeUserID); err != nil {
		return fmt.Errorf("stream.Broadcaster: %w", err)
	}

	if b.relay == nil {
		return nil
	}

	encoded, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("stream.Broadcaster: %w", err)
	}

	payload, err := json.Marshal(envelope{
		Origin:        b.instanceID,
		ScopeKind:     scope.Kind,
		ScopeID:       scope.ID,
		ExcludeUserID: excludeUserID,
		Event:         encoded,
	})
	if err != nil {
		return fmt.Errorf("stream.Broadcaster: envelope: %w", err)
	}

	if err := b.relay.Publish(ctx, payload); err != nil {
		b.log.Warn().Err(err).Stringer("scope", scope).Msg("relay publish failed, local delivery unaffected")
	}

	return nil
}

// Run consumes relayed envelopes from peer instances and delivers them to the
// local registry. Returns when ctx is cancelled or the relay channel closes.
// No-op without a relay.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.relay == nil {
		return nil
	}

	msgs, cleanup, err := b.relay.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("stream.Broadcaster.Run: %w", err)
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			b.deliverRemote(payload)
		}
	}
}

func (b *Broadcaster) deliverRemote(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.log.Warn().Err(err).Msg("dropping malformed relay envelope")
		return
	}

	if env.Origin == b.instanceID {
		return
	}

	ev, err := events.Decode(env.Event)
	if err != nil {
		b.log.Warn().Err(err).Msg("dropping undecodable relayed event")
		return
	}

	scope := Scope{Kind: env.ScopeKind, ID: env.ScopeID}
	if err := b.registry.Broadcast(scope, ev, env.ExcludeUserID); err != nil {
		b.log.Warn().Err(err).Stringer("scope", scope).Msg("relayed broadcast failed")
	}
}
