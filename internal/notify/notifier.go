// Package notify delivers out-of-band notifications for board activity.
// Delivery is best-effort: a failed or unconfigured messenger never affects
// the mutation that triggered it.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tavolohq/tavolo/internal/domain"
)

// Messenger posts a text message to a channel on one chat platform.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, text string) error
	Platform() string
}

// Notifier formats assignment notifications and hands them to a messenger.
type Notifier struct {
	messenger Messenger
	channel   string
	log       zerolog.Logger
}

// New creates a Notifier posting to channel. A nil messenger or empty channel
// yields a notifier that silently drops everything, so callers never need a
// nil check.
func New(messenger Messenger, channel string, log zerolog.Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		channel:   channel,
		log:       log.With().Str("component", "notifier").Logger(),
	}
}

// TodoAssigned announces that assignee now owns todo on board.
func (n *Notifier) TodoAssigned(ctx context.Context, assignee *domain.User, todo *domain.Todo, board *domain.Board) {
	if n.messenger == nil || n.channel == "" {
		return
	}

	text := fmt.Sprintf("*%s* was assigned \"%s\" on board *%s*", assignee.DisplayName, todo.Title, board.Name)

	if err := n.messenger.SendMessage(ctx, n.channel, text); err != nil {
		n.log.Warn().
			Err(err).
			Str("platform", n.messenger.Platform()).
			Stringer("todo_id", todo.ID).
			Stringer("assignee_id", assignee.ID).
			Msg("assignment notification failed")
		return
	}

	n.log.Debug().Stringer("todo_id", todo.ID).Stringer("assignee_id", assignee.ID).Msg("assignment notification sent")
}
