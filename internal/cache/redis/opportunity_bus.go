package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

const (
	// opportunityChannel carries each scan pass's ranked list to live
	// subscribers.
	opportunityChannel = "opportunities"

	// opportunityStream keeps a bounded replayable history of passes.
	opportunityStream = "opportunities:stream"

	// streamMaxLen is the approximate maximum stream length, enforced via
	// XADD MAXLEN ~.
	streamMaxLen int64 = 10000
)

// ScanResult is the published record for one symbol's scan pass.
type ScanResult struct {
	Symbol        string               `json:"symbol"`
	Opportunities []domain.Opportunity `json:"opportunities"`
	Summary       domain.Summary       `json:"summary"`
	Quality       domain.DataQuality   `json:"quality"`
	ScannedAt     time.Time            `json:"scanned_at"`
}

// OpportunityBus publishes ranked scan results over Redis Pub/Sub for live
// consumers and appends them to a capped stream for replay.
type OpportunityBus struct {
	rdb *redis.Client
}

// NewOpportunityBus creates a bus backed by the given Client.
func NewOpportunityBus(c *Client) *OpportunityBus {
	return &OpportunityBus{rdb: c.Underlying()}
}

// Publish sends one scan result to the live channel and the history stream.
func (b *OpportunityBus) Publish(ctx context.Context, result ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal scan result: %w", err)
	}

	if err := b.rdb.Publish(ctx, opportunityChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", opportunityChannel, err)
	}

	args := &redis.XAddArgs{
		Stream: opportunityStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", opportunityStream, err)
	}
	return nil
}

// Subscribe returns a channel of scan results. The subscription closes with
// the context.
func (b *OpportunityBus) Subscribe(ctx context.Context) (<-chan ScanResult, error) {
	pubsub := b.rdb.Subscribe(ctx, opportunityChannel)

	// Confirm the subscription before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", opportunityChannel, err)
	}

	out := make(chan ScanResult, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var result ScanResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					continue
				}
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
