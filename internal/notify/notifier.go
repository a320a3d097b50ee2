// Package notify delivers operator alerts for detected opportunities over
// one or more chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Message is one alert to deliver. Event drives the notifier's subscription
// filter; Title and Body are rendered by each channel in its own markup.
type Message struct {
	Event string
	Title string
	Body  string
}

// Sender delivers a Message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// Name identifies the channel in logs and combined errors.
	Name() string
}

// Notifier fans a message out to every configured channel, dropping events
// the operator has not subscribed to.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given channels. events lists the
// subscribed event types; an empty list subscribes to everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers msg on every channel. A failing channel is logged and
// reported in the combined error but never blocks the remaining channels.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[msg.Event]; !ok {
			n.logger.DebugContext(ctx, "event not subscribed",
				slog.String("event", msg.Event),
			)
			return nil
		}
	}
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "channel delivery failed",
				slog.String("channel", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", s.Name()),
			slog.String("event", msg.Event),
		)
	}
	return errors.Join(errs...)
}
