package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

const (
	wsWriteWait = 10 * time.Second

	wsPongWait = 60 * time.Second

	// wsPingPeriod must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	wsReconnectDelay = 2 * time.Second

	wsMaxReconnectDelay = 60 * time.Second

	// wsStaleAfter bounds how old a streamed quote may be before Fetch
	// refuses to serve it.
	wsStaleAfter = 30 * time.Second
)

// BinanceStream maintains a live view of Binance 24h tickers over the
// combined WebSocket stream. It implements Adapter: Fetch serves the most
// recent streamed quote instead of issuing an HTTP request, falling back to
// an error when the stream has not yet delivered (or has gone stale for)
// the requested symbol.
type BinanceStream struct {
	wsURL   string
	symbols []string
	logger  *slog.Logger

	// canonical maps the wire symbol ("BTCUSDT") back to the configured
	// form ("BTC/USDT").
	canonical map[string]string

	mu     sync.RWMutex
	quotes map[string]domain.Quote

	closeOnce sync.Once
	done      chan struct{}
}

// NewBinanceStream creates a streaming feed for the given symbols
// ("BTC/USDT" form). wsURL defaults to the public combined-stream endpoint.
func NewBinanceStream(wsURL string, symbols []string, logger *slog.Logger) *BinanceStream {
	if wsURL == "" {
		wsURL = "wss://stream.binance.com:9443/stream"
	}
	canonical := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		canonical[strings.ToUpper(strings.ReplaceAll(sym, "/", ""))] = sym
	}
	return &BinanceStream{
		wsURL:     wsURL,
		symbols:   symbols,
		logger:    logger.With(slog.String("component", "binance_stream")),
		canonical: canonical,
		quotes:    make(map[string]domain.Quote),
		done:      make(chan struct{}),
	}
}

func (s *BinanceStream) Name() domain.SourceID { return domain.SourceBinance }

// Fetch returns the latest streamed quote for symbol. It never blocks on
// the network.
func (s *BinanceStream) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	key := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))

	s.mu.RLock()
	q, ok := s.quotes[key]
	s.mu.RUnlock()

	if !ok {
		return domain.Quote{}, domain.NewSourceError(domain.SourceBinance, domain.ErrKindUnreachable,
			fmt.Errorf("no streamed quote for %s yet", symbol))
	}
	if time.Since(q.ObservedAt) > wsStaleAfter {
		return domain.Quote{}, domain.NewSourceError(domain.SourceBinance, domain.ErrKindTimeout,
			fmt.Errorf("streamed quote for %s is stale", symbol))
	}
	return q, nil
}

// Run connects and consumes ticker events until ctx is cancelled,
// reconnecting with exponential backoff on disconnect.
func (s *BinanceStream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		s.logger.Info("no symbols to stream, exiting")
		return nil
	}

	delay := wsReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-s.done:
			return nil
		default:
		}

		s.logger.Warn("binance stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > wsMaxReconnectDelay {
			delay = wsMaxReconnectDelay
		}
	}
}

// Close stops the feed.
func (s *BinanceStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *BinanceStream) streamURL() string {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		key := strings.ToLower(strings.ReplaceAll(sym, "/", ""))
		streams = append(streams, key+"@ticker")
	}
	return s.wsURL + "?streams=" + strings.Join(streams, "/")
}

func (s *BinanceStream) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// Close the connection when ctx or the feed is shut down so the read
	// loop unblocks.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		case <-connDone:
			return
		}
		conn.Close()
	}()

	go s.pingLoop(conn, connDone)

	s.logger.Info("binance stream connected", slog.Int("symbols", len(s.symbols)))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(raw)
	}
}

func (s *BinanceStream) pingLoop(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-connDone:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// binanceStreamEvent is one combined-stream envelope carrying a 24h ticker.
type binanceStreamEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol        string `json:"s"`
		LastPrice     string `json:"c"`
		BidPrice      string `json:"b"`
		AskPrice      string `json:"a"`
		Volume        string `json:"v"`
		PriceChange   string `json:"P"`
		EventTimeMill int64  `json:"E"`
	} `json:"data"`
}

func (s *BinanceStream) handleMessage(raw []byte) {
	var ev binanceStreamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return // drop unparseable frames
	}
	symbol, ok := s.canonical[ev.Data.Symbol]
	if !ok {
		return
	}

	bid, err1 := strconv.ParseFloat(ev.Data.BidPrice, 64)
	ask, err2 := strconv.ParseFloat(ev.Data.AskPrice, 64)
	last, err3 := strconv.ParseFloat(ev.Data.LastPrice, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}
	volume, _ := strconv.ParseFloat(ev.Data.Volume, 64)
	change, _ := strconv.ParseFloat(ev.Data.PriceChange, 64)

	q, err := buildQuote(s.logger, domain.SourceBinance, symbol, bid, ask, last, volume, change)
	if err != nil {
		s.logger.Warn("dropping invalid streamed quote",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.quotes[ev.Data.Symbol] = q
	s.mu.Unlock()
}

var _ Adapter = (*BinanceStream)(nil)
