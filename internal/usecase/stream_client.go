package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
	"BarFlow/internal/repository"
	"BarFlow/internal/subscriptions"
	"BarFlow/pkg/logger"
)

// Listener is an external fan-out target. A listener that returns an error or
// panics is logged and isolated; it never blocks sibling listeners or
// persistence.
type Listener func(ctx context.Context, ev models.Event) error

// BarSnapshot is the flat record shape returned by GetIntradayBars.
type BarSnapshot struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// StreamClient owns the upstream transport's lifecycle and is the single
// dispatch point between the feed and (a) bar persistence, (b) external
// listeners. One instance per process.
type StreamClient struct {
	transport domrepo.Transport
	store     domrepo.BarStore
	subs      *subscriptions.Manager
	history   domrepo.HistorySource
	logger    *logger.Logger
	metrics   domrepo.Metrics

	registered atomic.Bool
	regMu      sync.Mutex

	lisMu     sync.Mutex
	listeners []Listener
}

// NewStreamClient wires the streaming client to its collaborators.
func NewStreamClient(
	transport domrepo.Transport,
	store domrepo.BarStore,
	subs *subscriptions.Manager,
	l *logger.Logger,
	m domrepo.Metrics,
) *StreamClient {
	return &StreamClient{
		transport: transport,
		store:     store,
		subs:      subs,
		logger:    l,
		metrics:   m,
	}
}

// EnsureListenerRegistered attaches the internal dispatch callback to the
// transport's listener slot exactly once for the lifetime of this client.
// Safe to call from concurrent call sites; repeated calls are cheap no-ops.
func (c *StreamClient) EnsureListenerRegistered() {
	if c.registered.Load() {
		return
	}
	c.regMu.Lock()
	defer c.regMu.Unlock()
	if c.registered.Load() {
		return
	}
	c.transport.RegisterListener(c.onEvent)
	c.registered.Store(true)
}

// Start ensures the listener is registered, then starts the transport only if
// it is not already running.
func (c *StreamClient) Start(ctx context.Context) error {
	c.EnsureListenerRegistered()
	if c.transport.IsRunning() {
		return nil
	}
	return c.transport.Start(ctx)
}

// Stop delegates to the transport.
func (c *StreamClient) Stop(ctx context.Context) error {
	return c.transport.Stop(ctx)
}

// Reconnect always performs a full stop-then-start, even if the transport
// reports itself as already stopped. Listener registration is untouched.
func (c *StreamClient) Reconnect(ctx context.Context) error {
	if err := c.transport.Stop(ctx); err != nil {
		c.logger.Warn("stop before reconnect", logger.Error(err))
	}
	return c.transport.Start(ctx)
}

// Subscribe registers consumerID's interest in symbols. Listener registration
// is guaranteed first, so a subscription made before the first Start still
// yields persisted data once the transport delivers events.
func (c *StreamClient) Subscribe(ctx context.Context, symbols []string, consumerID string) error {
	c.EnsureListenerRegistered()
	return c.subs.AddSymbols(ctx, symbols, consumerID)
}

// Unsubscribe drops consumerID's interest in symbols.
func (c *StreamClient) Unsubscribe(ctx context.Context, symbols []string, consumerID string) error {
	return c.subs.RemoveSymbols(ctx, symbols, consumerID)
}

// RemoveConsumer drops consumerID from every symbol. Used on teardown.
func (c *StreamClient) RemoveConsumer(ctx context.Context, consumerID string) error {
	return c.subs.RemoveConsumer(ctx, consumerID)
}

// ActiveSymbols snapshots all symbols currently subscribed upstream.
func (c *StreamClient) ActiveSymbols() []string {
	return c.subs.ActiveSymbols()
}

// AddListener registers an additional external fan-out target. Listeners
// accumulate for the life of the client; there is no removal.
func (c *StreamClient) AddListener(fn Listener) {
	c.lisMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.lisMu.Unlock()
}

// SetHistorySource attaches an optional REST candle source for backfills.
func (c *StreamClient) SetHistorySource(h domrepo.HistorySource) {
	c.history = h
}

// Backfill fetches historical candles for [from, to] and bulk-inserts them.
// Buckets that already exist are dropped by the store's duplicate handling,
// so overlapping a backfill with live data is safe.
func (c *StreamClient) Backfill(ctx context.Context, symbol, interval string, from, to time.Time) (int, error) {
	if c.history == nil {
		return 0, fmt.Errorf("no history source configured")
	}
	if !to.After(from) {
		return 0, fmt.Errorf("backfill range is empty")
	}

	bars, err := c.history.FetchCandles(ctx, symbol, interval, from, to)
	if err != nil {
		return 0, fmt.Errorf("backfill %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	if err := c.store.BulkInsert(ctx, bars); err != nil {
		return 0, fmt.Errorf("backfill insert %s: %w", symbol, err)
	}
	c.logger.Info("backfill complete",
		logger.String("symbol", symbol),
		logger.String("interval", interval),
		logger.Int("bars", len(bars)),
	)
	return len(bars), nil
}

// GetIntradayBars is a read-through convenience over the bar store.
func (c *StreamClient) GetIntradayBars(ctx context.Context, symbol, interval string, limit int) ([]BarSnapshot, error) {
	bars, err := c.store.GetIntradayBars(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("get intraday bars: %w", err)
	}
	out := make([]BarSnapshot, len(bars))
	for i, b := range bars {
		out[i] = BarSnapshot{
			Symbol:    b.Symbol,
			Interval:  b.Interval,
			Timestamp: b.Bucket,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return out, nil
}

// onEvent is the internal dispatch path: persistence first, with any failure
// logged and swallowed so one bad event cannot stop the fan-out, then every
// listener in registration order, each individually recovered.
func (c *StreamClient) onEvent(ev models.Event) {
	ctx := context.Background()
	c.metrics.RecordEvent(ev.Kind.String())

	start := time.Now()
	switch ev.Kind {
	case models.EventTrade:
		t := ev.Trade
		ts := t.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		c.metrics.RecordLastPrice(strings.ToUpper(t.Symbol), t.Price)
		if err := c.store.RecordTrade(ctx, t.Symbol, t.Price, t.Size, ts, repository.DefaultInterval); err != nil {
			c.logger.Error("persist trade failed",
				logger.String("symbol", t.Symbol),
				logger.Error(err),
			)
			c.metrics.RecordDroppedWrite("store_error")
		}
	case models.EventSummary:
		s := ev.Summary
		ts := s.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if err := c.store.ApplySummary(ctx, s.Symbol, s.Interval, ts, s.Fields); err != nil {
			c.logger.Error("persist summary failed",
				logger.String("symbol", s.Symbol),
				logger.Error(err),
			)
			c.metrics.RecordDroppedWrite("store_error")
		}
	default:
		// unrecognized type or missing symbol: skipped, not an error
		c.logger.Debug("ignoring unrecognized event")
	}
	c.metrics.RecordLatency("dispatch_persist", time.Since(start).Seconds())

	c.lisMu.Lock()
	targets := append([]Listener(nil), c.listeners...)
	c.lisMu.Unlock()

	for i, fn := range targets {
		if err := c.invoke(ctx, fn, ev); err != nil {
			c.logger.Error("listener failed",
				logger.Int("listener", i),
				logger.Error(err),
			)
			c.metrics.RecordListenerError(strconv.Itoa(i))
		}
	}
}

func (c *StreamClient) invoke(ctx context.Context, fn Listener, ev models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ctx, ev)
}
