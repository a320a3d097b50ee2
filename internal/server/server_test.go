package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/scanner"
	"github.com/zhongsurehow/crossarb/internal/server/handler"
)

type stubEngine struct {
	statuses []domain.SourceStatus
	results  []scanner.Result
}

func (s *stubEngine) Statuses() []domain.SourceStatus { return s.statuses }
func (s *stubEngine) Latest() []scanner.Result        { return s.results }

type stubStore struct {
	opps []domain.Opportunity
}

func (s *stubStore) InsertBatch(context.Context, []domain.Opportunity) error { return nil }

func (s *stubStore) Recent(_ context.Context, symbol string, limit int) ([]domain.Opportunity, error) {
	if limit > len(s.opps) {
		limit = len(s.opps)
	}
	return s.opps[:limit], nil
}

func testHandler(t *testing.T, apiKey string, store domain.OpportunityStore) http.Handler {
	t.Helper()
	engine := &stubEngine{
		statuses: []domain.SourceStatus{
			{Source: domain.SourceBinance, BreakerState: "closed"},
			{Source: domain.SourceOKX, BreakerState: "open", FailureCount: 5, LastFailure: time.Now()},
		},
		results: []scanner.Result{
			{Symbol: "BTC/USDT", Quality: domain.QualityReal, ScannedAt: time.Now()},
			{Symbol: "ETH/USDT", Quality: domain.QualitySynthetic, ScannedAt: time.Now()},
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(Config{Port: 0, APIKey: apiKey}, Handlers{
		Health:        handler.NewHealthHandler(logger),
		Sources:       handler.NewSourceHandler(engine),
		Scans:         handler.NewScanHandler(engine),
		Opportunities: handler.NewOpportunityHandler(store),
	}, logger)
	return srv.httpServer.Handler
}

func get(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	h := testHandler(t, "", &stubStore{opps: []domain.Opportunity{
		{ID: "1", Symbol: "BTC/USDT", ProfitPct: 1.2, Quality: domain.QualityReal},
	}})

	t.Run("health", func(t *testing.T) {
		rec := get(t, h, "/api/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("source statuses", func(t *testing.T) {
		rec := get(t, h, "/api/sources/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sources []struct {
				Source       string `json:"source"`
				BreakerState string `json:"breaker_state"`
				FailureCount int    `json:"failure_count"`
			} `json:"sources"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Sources, 2)
		assert.Equal(t, "binance", body.Sources[0].Source)
		assert.Equal(t, "open", body.Sources[1].BreakerState)
		assert.Equal(t, 5, body.Sources[1].FailureCount)
	})

	t.Run("latest scans", func(t *testing.T) {
		rec := get(t, h, "/api/scans/latest", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Scans []struct {
				Symbol  string `json:"symbol"`
				Quality string `json:"quality"`
			} `json:"scans"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Scans, 2)
	})

	t.Run("latest scans filtered by symbol", func(t *testing.T) {
		rec := get(t, h, "/api/scans/latest?symbol=ETH/USDT", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Scans []struct {
				Symbol string `json:"symbol"`
			} `json:"scans"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Scans, 1)
		assert.Equal(t, "ETH/USDT", body.Scans[0].Symbol)
	})

	t.Run("recent opportunities", func(t *testing.T) {
		rec := get(t, h, "/api/opportunities/recent", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Opportunities []struct {
				ID        string  `json:"id"`
				ProfitPct float64 `json:"profit_pct"`
			} `json:"opportunities"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Opportunities, 1)
		assert.Equal(t, "1", body.Opportunities[0].ID)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := get(t, h, "/api/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServerWithoutStore(t *testing.T) {
	h := testHandler(t, "", nil)
	rec := get(t, h, "/api/opportunities/recent", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerAuth(t *testing.T) {
	h := testHandler(t, "secret", nil)

	t.Run("health stays open", func(t *testing.T) {
		rec := get(t, h, "/api/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		rec := get(t, h, "/api/sources/status", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		rec := get(t, h, "/api/sources/status", map[string]string{"X-API-Key": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		rec := get(t, h, "/api/sources/status", map[string]string{"Authorization": "Bearer secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api key header accepted", func(t *testing.T) {
		rec := get(t, h, "/api/sources/status", map[string]string{"X-API-Key": "secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
