package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Bybit fetches spot tickers from the Bybit v5 REST API.
type Bybit struct {
	baseURL string
	rest    *restClient
	logger  *slog.Logger
}

// NewBybit creates a Bybit adapter.
func NewBybit(baseURL string, timeout time.Duration, logger *slog.Logger) *Bybit {
	if baseURL == "" {
		baseURL = "https://api.bybit.com/v5"
	}
	return &Bybit{
		baseURL: baseURL,
		rest:    newRESTClient(domain.SourceBybit, timeout),
		logger:  logger.With(slog.String("component", "source_bybit")),
	}
}

func (b *Bybit) Name() domain.SourceID { return domain.SourceBybit }

func (b *Bybit) PingURL() string { return b.baseURL + "/market/time" }

// formatSymbol maps "BTC/USDT" to "BTCUSDT".
func (b *Bybit) formatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

type bybitTicker struct {
	LastPrice    string `json:"lastPrice"`
	Bid1Price    string `json:"bid1Price"`
	Ask1Price    string `json:"ask1Price"`
	Volume24h    string `json:"volume24h"`
	Price24hPcnt string `json:"price24hPcnt"`
}

type bybitResponse struct {
	RetCode int `json:"retCode"`
	Result  struct {
		List []bybitTicker `json:"list"`
	} `json:"result"`
}

// Fetch retrieves the spot ticker for symbol.
func (b *Bybit) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", b.formatSymbol(symbol))

	var resp bybitResponse
	if err := b.rest.getJSON(ctx, b.baseURL+"/market/tickers", params, &resp); err != nil {
		return domain.Quote{}, err
	}
	if len(resp.Result.List) == 0 {
		return domain.Quote{}, errEmptyTicker(domain.SourceBybit, symbol)
	}
	t := resp.Result.List[0]

	last, err := parsePrice(domain.SourceBybit, "lastPrice", t.LastPrice)
	if err != nil {
		return domain.Quote{}, err
	}
	bid, err := parsePrice(domain.SourceBybit, "bid1Price", t.Bid1Price)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(domain.SourceBybit, "ask1Price", t.Ask1Price)
	if err != nil {
		return domain.Quote{}, err
	}

	volume, _ := parsePrice(domain.SourceBybit, "volume24h", t.Volume24h)
	// price24hPcnt is a ratio, not a percentage.
	ratio, _ := parsePrice(domain.SourceBybit, "price24hPcnt", t.Price24hPcnt)

	return buildQuote(b.logger, domain.SourceBybit, symbol, bid, ask, last, volume, ratio*100)
}

var _ Adapter = (*Bybit)(nil)
