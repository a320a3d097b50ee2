package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// restClient is the shared HTTP layer for the REST adapters. It performs a
// context-aware GET and classifies every failure into a SourceError kind.
type restClient struct {
	source     domain.SourceID
	httpClient *http.Client
}

func newRESTClient(source domain.SourceID, timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &restClient{
		source: source,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// getJSON fetches rawURL with the given query parameters and decodes the
// response body into out.
func (c *restClient) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.NewSourceError(c.source, domain.ErrKindMalformedResponse, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.classifyTransport(err)
	}

	if err := c.checkStatus(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewSourceError(c.source, domain.ErrKindMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classifyTransport maps transport-level errors onto the SourceError
// taxonomy: deadline and timeout failures are Timeout, everything else is
// Unreachable.
func (c *restClient) classifyTransport(err error) *domain.SourceError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewSourceError(c.source, domain.ErrKindTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewSourceError(c.source, domain.ErrKindTimeout, err)
	}
	return domain.NewSourceError(c.source, domain.ErrKindUnreachable, err)
}

// checkStatus classifies non-2xx responses. HTTP 429 becomes RateLimited
// and carries the Retry-After hint when the provider sent one; 4xx is a
// permanent MalformedResponse (wrong symbol, bad request); 5xx is
// Unreachable and worth retrying.
func (c *restClient) checkStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	switch {
	case code == http.StatusTooManyRequests:
		se := domain.NewSourceError(c.source, domain.ErrKindRateLimited,
			fmt.Errorf("HTTP 429: %s", truncate(body)))
		if hint := resp.Header.Get("Retry-After"); hint != "" {
			if secs, err := strconv.Atoi(hint); err == nil && secs > 0 {
				se.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return se
	case code >= 500:
		return domain.NewSourceError(c.source, domain.ErrKindUnreachable,
			fmt.Errorf("HTTP %d: %s", code, truncate(body)))
	default:
		return domain.NewSourceError(c.source, domain.ErrKindMalformedResponse,
			fmt.Errorf("HTTP %d: %s", code, truncate(body)))
	}
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// parsePrice converts a string price field, surfacing a MalformedResponse
// for missing or non-numeric values.
func parsePrice(source domain.SourceID, field, value string) (float64, error) {
	if value == "" {
		return 0, domain.NewSourceError(source, domain.ErrKindMalformedResponse,
			fmt.Errorf("missing field %q", field))
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, domain.NewSourceError(source, domain.ErrKindMalformedResponse,
			fmt.Errorf("field %q: %w", field, err))
	}
	return f, nil
}
