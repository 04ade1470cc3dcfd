// Package streamclient is a Go consumer for the event stream endpoints. It
// maintains one SSE subscription, redelivers typed events to registered
// handlers, and reconnects with a fixed delay whenever the stream drops.
package streamclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavolohq/tavolo/internal/events"
)

// Status is the client's connection state, reported through
// Handlers.StatusChanged so UIs can show connectivity.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Handlers holds the per-type callbacks. Nil entries drop their events.
// Callbacks run on the client's read goroutine; they must not block.
type Handlers struct {
	TodoCreated       func(events.TodoCreatedPayload)
	TodoUpdated       func(events.TodoUpdatedPayload)
	TodoDeleted       func(events.TodoDeletedPayload)
	TodoStatusChanged func(events.TodoStatusChangedPayload)
	BoardCreated      func(events.BoardCreatedPayload)
	BoardUpdated      func(events.BoardUpdatedPayload)
	BoardDeleted      func(events.BoardDeletedPayload)

	StatusChanged func(Status)
}

// Config tunes one subscription.
type Config struct {
	// URL is the full stream endpoint, e.g.
	// https://host/api/v1/stream/boards/<id>.
	URL string

	// AccessToken authenticates the subscription.
	AccessToken string

	// ReconnectDelay is the fixed wait between attempts. Zero means 3s.
	ReconnectDelay time.Duration

	// HTTPClient may carry custom transports. Nil means a client without
	// timeout, since the stream request never completes.
	HTTPClient *http.Client

	Log zerolog.Logger
}

// Client drives one subscription. Create with New, start with Run, stop by
// cancelling the context or calling Close. Run may be called at most once
// per Client; a Close from any goroutine, before or after Run starts, is the
// terminal teardown.
type Client struct {
	cfg      Config
	handlers Handlers

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  bool
}

func New(cfg Config, handlers Handlers) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	cfg.Log = cfg.Log.With().Str("component", "streamclient").Logger()

	return &Client{cfg: cfg, handlers: handlers}
}

// Run connects and keeps the subscription alive until ctx is cancelled or
// Close is called. Every drop, whatever the cause, waits ReconnectDelay and
// retries; there is no attempt limit. Run may be called at most once per
// Client; a second call returns an error. If Close already ran, Run returns
// immediately without connecting.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel, err := c.start(ctx)
	if err != nil {
		return err
	}
	if cancel == nil {
		return nil
	}
	defer cancel()

	for {
		c.setStatus(StatusConnecting)

		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.setStatus(StatusDisconnected)
			return nil
		}

		c.setStatus(StatusDisconnected)
		c.cfg.Log.Warn().Err(err).Dur("retry_in", c.cfg.ReconnectDelay).Msg("stream dropped, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// start claims the Client for a single Run and hands back its cancelable
// context. A nil cancel with a nil error means Close won the race and Run
// should return without connecting.
func (c *Client) start(parent context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil, nil, errors.New("streamclient.Client.Run: already started")
	}
	c.started = true
	if c.closed {
		return nil, nil, nil
	}

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	return ctx, cancel, nil
}

// Close terminates Run. Safe to call from any goroutine, before or after Run
// starts; a Close issued before Run keeps Run from ever connecting.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
}

// consume opens one stream and reads it until it breaks.
func (c *Client) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("streamclient.Client.consume: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("streamclient.Client.consume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("streamclient.Client.consume: unexpected status %d", resp.StatusCode)
	}

	c.setStatus(StatusConnected)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line ends the frame.
			if data.Len() > 0 {
				c.dispatch([]byte(data.String()))
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Comment frame: the connected sentinel or a keep-alive.
		case strings.HasPrefix(line, "data:"):
			// Multiple data lines concatenate per the SSE spec.
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// "event: message" and any other field is carried but unused.
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("streamclient.Client.consume: read: %w", err)
	}
	return errors.New("streamclient.Client.consume: stream closed by server")
}

func (c *Client) dispatch(raw []byte) {
	ev, err := events.Decode(raw)
	if err != nil {
		// Unknown types are expected from newer servers; anything else is
		// a malformed frame. Both are logged and skipped.
		if errors.Is(err, events.ErrUnknownType) {
			c.cfg.Log.Debug().Err(err).Msg("skipping unknown event type")
		} else {
			c.cfg.Log.Warn().Err(err).Msg("skipping undecodable event")
		}
		return
	}

	switch p := ev.Payload.(type) {
	case events.TodoCreatedPayload:
		if c.handlers.TodoCreated != nil {
			c.handlers.TodoCreated(p)
		}
	case events.TodoUpdatedPayload:
		if c.handlers.TodoUpdated != nil {
			c.handlers.TodoUpdated(p)
		}
	case events.TodoDeletedPayload:
		if c.handlers.TodoDeleted != nil {
			c.handlers.TodoDeleted(p)
		}
	case events.TodoStatusChangedPayload:
		if c.handlers.TodoStatusChanged != nil {
			c.handlers.TodoStatusChanged(p)
		}
	case events.BoardCreatedPayload:
		if c.handlers.BoardCreated != nil {
			c.handlers.BoardCreated(p)
		}
	case events.BoardUpdatedPayload:
		if c.handlers.BoardUpdated != nil {
			c.handlers.BoardUpdated(p)
		}
	case events.BoardDeletedPayload:
		if c.handlers.BoardDeleted != nil {
			c.handlers.BoardDeleted(p)
		}
	}
}

func (c *Client) setStatus(s Status) {
	if c.handlers.StatusChanged != nil {
		c.handlers.StatusChanged(s)
	}
}
