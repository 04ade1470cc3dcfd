package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of the Slack client the messenger uses.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger posts notifications to Slack.
type SlackMessenger struct {
	api SlackAPI
}

var _ Messenger = (*SlackMessenger)(nil)

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// NewSlackMessengerFromToken builds the real Slack client from a bot token.
func NewSlackMessengerFromToken(botToken string) *SlackMessenger {
	return NewSlackMessenger(slacklib.New(botToken))
}

// SendMessage posts a text message to a Slack channel.
func (m *SlackMessenger) SendMessage(_ context.Context, channelID, text string) error {
	if _, _, err := m.api.PostMessage(channelID, slacklib.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("notify.SlackMessenger.SendMessage: %w", err)
	}
	return nil
}

// Platform returns the messenger platform identifier.
func (m *SlackMessenger) Platform() string {
	return "slack"
}
