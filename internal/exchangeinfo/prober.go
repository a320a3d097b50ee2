package exchangeinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// unreachableLatencyMs is reported when a probe fails, so ranking still has
// a number to work with.
const unreachableLatencyMs = 999.0

// HTTPProber measures latency with a timed GET against each exchange's ping
// endpoint.
type HTTPProber struct {
	urls   map[domain.SourceID]string
	client *http.Client
}

// NewHTTPProber creates a prober over the given source → ping URL map.
func NewHTTPProber(urls map[domain.SourceID]string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
	}
}

// Ping times a GET against the source's ping endpoint and returns the
// round-trip in milliseconds.
func (p *HTTPProber) Ping(ctx context.Context, source domain.SourceID) (float64, error) {
	u, ok := p.urls[source]
	if !ok {
		return 0, fmt.Errorf("no ping endpoint for %s", source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ping %s: HTTP %d", source, resp.StatusCode)
	}
	return float64(time.Since(start).Microseconds()) / 1000, nil
}

var _ LatencyProber = (*HTTPProber)(nil)
