package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Gate fetches spot tickers from the Gate.io REST API.
type Gate struct {
	baseURL string
	rest    *restClient
	logger  *slog.Logger
}

// NewGate creates a Gate.io adapter.
func NewGate(baseURL string, timeout time.Duration, logger *slog.Logger) *Gate {
	if baseURL == "" {
		baseURL = "https://api.gateio.ws/api/v4"
	}
	return &Gate{
		baseURL: baseURL,
		rest:    newRESTClient(domain.SourceGate, timeout),
		logger:  logger.With(slog.String("component", "source_gate")),
	}
}

func (g *Gate) Name() domain.SourceID { return domain.SourceGate }

func (g *Gate) PingURL() string { return g.baseURL + "/spot/time" }

// formatSymbol maps "BTC/USDT" to "BTC_USDT".
func (g *Gate) formatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "_"))
}

type gateTicker struct {
	Last             string `json:"last"`
	HighestBid       string `json:"highest_bid"`
	LowestAsk        string `json:"lowest_ask"`
	BaseVolume       string `json:"base_volume"`
	ChangePercentage string `json:"change_percentage"`
}

// Fetch retrieves the ticker for symbol.
func (g *Gate) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("currency_pair", g.formatSymbol(symbol))

	var tickers []gateTicker
	if err := g.rest.getJSON(ctx, g.baseURL+"/spot/tickers", params, &tickers); err != nil {
		return domain.Quote{}, err
	}
	if len(tickers) == 0 {
		return domain.Quote{}, errEmptyTicker(domain.SourceGate, symbol)
	}
	t := tickers[0]

	last, err := parsePrice(domain.SourceGate, "last", t.Last)
	if err != nil {
		return domain.Quote{}, err
	}
	bid, err := parsePrice(domain.SourceGate, "highest_bid", t.HighestBid)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(domain.SourceGate, "lowest_ask", t.LowestAsk)
	if err != nil {
		return domain.Quote{}, err
	}

	volume, _ := parsePrice(domain.SourceGate, "base_volume", t.BaseVolume)
	change, _ := parsePrice(domain.SourceGate, "change_percentage", t.ChangePercentage)

	return buildQuote(g.logger, domain.SourceGate, symbol, bid, ask, last, volume, change)
}

var _ Adapter = (*Gate)(nil)
