package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// OKX fetches spot tickers from the OKX REST API.
type OKX struct {
	baseURL string
	rest    *restClient
	logger  *slog.Logger
}

// NewOKX creates an OKX adapter.
func NewOKX(baseURL string, timeout time.Duration, logger *slog.Logger) *OKX {
	if baseURL == "" {
		baseURL = "https://www.okx.com/api/v5"
	}
	return &OKX{
		baseURL: baseURL,
		rest:    newRESTClient(domain.SourceOKX, timeout),
		logger:  logger.With(slog.String("component", "source_okx")),
	}
}

func (o *OKX) Name() domain.SourceID { return domain.SourceOKX }

func (o *OKX) PingURL() string { return o.baseURL + "/public/time" }

// formatSymbol maps "BTC/USDT" to "BTC-USDT".
func (o *OKX) formatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}

type okxTicker struct {
	Last   string `json:"last"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	Vol24h string `json:"vol24h"`
	Open24 string `json:"open24h"`
}

type okxResponse struct {
	Code string      `json:"code"`
	Data []okxTicker `json:"data"`
}

// Fetch retrieves the ticker for symbol.
func (o *OKX) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("instId", o.formatSymbol(symbol))

	var resp okxResponse
	if err := o.rest.getJSON(ctx, o.baseURL+"/market/ticker", params, &resp); err != nil {
		return domain.Quote{}, err
	}
	if len(resp.Data) == 0 {
		return domain.Quote{}, errEmptyTicker(domain.SourceOKX, symbol)
	}
	t := resp.Data[0]

	last, err := parsePrice(domain.SourceOKX, "last", t.Last)
	if err != nil {
		return domain.Quote{}, err
	}
	bid, err := parsePrice(domain.SourceOKX, "bidPx", t.BidPx)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(domain.SourceOKX, "askPx", t.AskPx)
	if err != nil {
		return domain.Quote{}, err
	}

	volume, _ := parsePrice(domain.SourceOKX, "vol24h", t.Vol24h)
	open, _ := parsePrice(domain.SourceOKX, "open24h", t.Open24)

	return buildQuote(o.logger, domain.SourceOKX, symbol, bid, ask, last, volume, pctFromOpen(last, open))
}

var _ Adapter = (*OKX)(nil)
