package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

type recordingSender struct {
	titles   []string
	messages []string
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.titles = append(s.titles, msg.Title)
	s.messages = append(s.messages, msg.Body)
	return s.err
}

func (s *recordingSender) Name() string { return "recording" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierEventFilter(t *testing.T) {
	ctx := context.Background()

	t.Run("empty event list allows everything", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, nil, discardLogger())

		require.NoError(t, n.Notify(ctx, Message{Event: "anything", Title: "t", Body: "m"}))
		assert.Len(t, sender.titles, 1)
	})

	t.Run("unlisted events are dropped", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, []string{EventOpportunity}, discardLogger())

		require.NoError(t, n.Notify(ctx, Message{Event: "other", Title: "t", Body: "m"}))
		assert.Empty(t, sender.titles)

		require.NoError(t, n.Notify(ctx, Message{Event: EventOpportunity, Title: "t", Body: "m"}))
		assert.Len(t, sender.titles, 1)
	})

	t.Run("sender failure surfaces but does not block others", func(t *testing.T) {
		bad := &recordingSender{err: errors.New("webhook down")}
		good := &recordingSender{}
		n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

		err := n.Notify(ctx, Message{Event: "x", Title: "t", Body: "m"})
		assert.Error(t, err)
		assert.Len(t, good.titles, 1)
	})
}

func TestOpportunityAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("formats the top opportunities", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, nil, discardLogger())

		err := n.OpportunityAlert(ctx, "BTC/USDT", []domain.Opportunity{{
			BuySource:            domain.SourceBinance,
			SellSource:           domain.SourceOKX,
			BuyPrice:             43010,
			SellPrice:            43500,
			ProfitPct:            1.14,
			RiskScore:            4.2,
			Quality:              domain.QualityReal,
			NetworkCompatible:    true,
			UnifiedNetwork:       "TRC20",
			TransferFee:          1,
			EstimatedTimeSeconds: 150,
		}})
		require.NoError(t, err)

		require.Len(t, sender.messages, 1)
		assert.Contains(t, sender.titles[0], "BTC/USDT")
		assert.Contains(t, sender.messages[0], "binance → okx")
		assert.Contains(t, sender.messages[0], "+1.14%")
		assert.Contains(t, sender.messages[0], "via TRC20")
		assert.NotContains(t, sender.messages[0], "synthetic")
	})

	t.Run("truncates beyond five entries", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, nil, discardLogger())

		opps := make([]domain.Opportunity, 8)
		for i := range opps {
			opps[i] = domain.Opportunity{
				BuySource:  domain.SourceBinance,
				SellSource: domain.SourceOKX,
				Quality:    domain.QualityReal,
			}
		}
		require.NoError(t, n.OpportunityAlert(ctx, "BTC/USDT", opps))
		assert.Contains(t, sender.messages[0], "and 3 more")
	})

	t.Run("synthetic data is disclaimed", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, nil, discardLogger())

		require.NoError(t, n.OpportunityAlert(ctx, "BTC/USDT", []domain.Opportunity{{
			BuySource:  domain.SourceBinance,
			SellSource: domain.SourceOKX,
			Quality:    domain.QualitySynthetic,
		}}))
		assert.Contains(t, sender.messages[0], "synthetic data, not actionable")
	})

	t.Run("empty list sends nothing", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier([]Sender{sender}, nil, discardLogger())

		require.NoError(t, n.OpportunityAlert(ctx, "BTC/USDT", nil))
		assert.Empty(t, sender.titles)
	})
}
