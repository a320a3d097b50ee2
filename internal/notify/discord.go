package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DiscordSender posts alerts to a Discord channel webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send renders the message in Discord markdown. Discord answers a webhook
// post with 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", msg.Title, msg.Body),
	}
	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the channel identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
