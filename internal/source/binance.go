package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Binance fetches spot tickers from the Binance REST API.
type Binance struct {
	baseURL string
	rest    *restClient
	logger  *slog.Logger
}

// NewBinance creates a Binance adapter. baseURL defaults to the public API
// root when empty.
func NewBinance(baseURL string, timeout time.Duration, logger *slog.Logger) *Binance {
	if baseURL == "" {
		baseURL = "https://api.binance.com/api/v3"
	}
	return &Binance{
		baseURL: baseURL,
		rest:    newRESTClient(domain.SourceBinance, timeout),
		logger:  logger.With(slog.String("component", "source_binance")),
	}
}

func (b *Binance) Name() domain.SourceID { return domain.SourceBinance }

// PingURL returns the unauthenticated liveness endpoint.
func (b *Binance) PingURL() string { return b.baseURL + "/ping" }

// formatSymbol maps "BTC/USDT" to "BTCUSDT".
func (b *Binance) formatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

type binanceTicker struct {
	LastPrice          string `json:"lastPrice"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	Volume             string `json:"volume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// Fetch retrieves the 24h ticker for symbol.
func (b *Binance) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", b.formatSymbol(symbol))

	var t binanceTicker
	if err := b.rest.getJSON(ctx, b.baseURL+"/ticker/24hr", params, &t); err != nil {
		return domain.Quote{}, err
	}

	last, err := parsePrice(domain.SourceBinance, "lastPrice", t.LastPrice)
	if err != nil {
		return domain.Quote{}, err
	}
	bid, err := parsePrice(domain.SourceBinance, "bidPrice", t.BidPrice)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(domain.SourceBinance, "askPrice", t.AskPrice)
	if err != nil {
		return domain.Quote{}, err
	}

	volume, _ := parsePrice(domain.SourceBinance, "volume", t.Volume)
	change, _ := parsePrice(domain.SourceBinance, "priceChangePercent", t.PriceChangePercent)

	return buildQuote(b.logger, domain.SourceBinance, symbol, bid, ask, last, volume, change)
}

var _ Adapter = (*Binance)(nil)
