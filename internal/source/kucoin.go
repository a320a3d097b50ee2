package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// KuCoin fetches level-1 orderbook tickers from the KuCoin REST API. The
// level-1 endpoint does not report a 24h change, so Change24hPct is always
// zero for this source.
type KuCoin struct {
	baseURL string
	rest    *restClient
	logger  *slog.Logger
}

// NewKuCoin creates a KuCoin adapter.
func NewKuCoin(baseURL string, timeout time.Duration, logger *slog.Logger) *KuCoin {
	if baseURL == "" {
		baseURL = "https://api.kucoin.com/api/v1"
	}
	return &KuCoin{
		baseURL: baseURL,
		rest:    newRESTClient(domain.SourceKuCoin, timeout),
		logger:  logger.With(slog.String("component", "source_kucoin")),
	}
}

func (k *KuCoin) Name() domain.SourceID { return domain.SourceKuCoin }

func (k *KuCoin) PingURL() string { return k.baseURL + "/timestamp" }

// formatSymbol maps "BTC/USDT" to "BTC-USDT".
func (k *KuCoin) formatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}

type kucoinResponse struct {
	Code string `json:"code"`
	Data struct {
		Price   string `json:"price"`
		BestBid string `json:"bestBid"`
		BestAsk string `json:"bestAsk"`
		Size    string `json:"size"`
	} `json:"data"`
}

// Fetch retrieves the level-1 ticker for symbol.
func (k *KuCoin) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", k.formatSymbol(symbol))

	var resp kucoinResponse
	if err := k.rest.getJSON(ctx, k.baseURL+"/market/orderbook/level1", params, &resp); err != nil {
		return domain.Quote{}, err
	}
	if resp.Data.Price == "" {
		return domain.Quote{}, errEmptyTicker(domain.SourceKuCoin, symbol)
	}

	last, err := parsePrice(domain.SourceKuCoin, "price", resp.Data.Price)
	if err != nil {
		return domain.Quote{}, err
	}
	bid, err := parsePrice(domain.SourceKuCoin, "bestBid", resp.Data.BestBid)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(domain.SourceKuCoin, "bestAsk", resp.Data.BestAsk)
	if err != nil {
		return domain.Quote{}, err
	}

	volume, _ := parsePrice(domain.SourceKuCoin, "size", resp.Data.Size)

	return buildQuote(k.logger, domain.SourceKuCoin, symbol, bid, ask, last, volume, 0)
}

var _ Adapter = (*KuCoin)(nil)
