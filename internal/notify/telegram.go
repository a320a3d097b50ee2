package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TelegramSender posts alerts to a chat through the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send renders the message in Telegram markdown, bold title above the body.
func (t *TelegramSender) Send(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", msg.Title, msg.Body),
		"parse_mode": "Markdown",
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name returns the channel identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
