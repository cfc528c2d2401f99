package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"BarFlow/internal/domain/models"
	"BarFlow/internal/subscriptions"
	"BarFlow/pkg/logger"
	"BarFlow/pkg/util"
)

type fakeTransport struct {
	listenerRegistrations int
	listener              func(models.Event)
	startCalls            int
	stopCalls             int
	running               bool
	subscribed            [][]string
	unsubscribed          [][]string
}

func (f *fakeTransport) Start(context.Context) error {
	f.startCalls++
	f.running = true
	return nil
}

func (f *fakeTransport) Stop(context.Context) error {
	f.stopCalls++
	f.running = false
	return nil
}

func (f *fakeTransport) Subscribe(_ context.Context, symbols []string) error {
	f.subscribed = append(f.subscribed, symbols)
	return nil
}

func (f *fakeTransport) Unsubscribe(_ context.Context, symbols []string) error {
	f.unsubscribed = append(f.unsubscribed, symbols)
	return nil
}

func (f *fakeTransport) RegisterListener(fn func(models.Event)) {
	f.listenerRegistrations++
	f.listener = fn
}

func (f *fakeTransport) IsRunning() bool { return f.running }

// deliver pushes a raw payload through the registered listener the way the
// real transport's read loop does.
func (f *fakeTransport) deliver(t *testing.T, payload string) {
	t.Helper()
	if f.listener == nil {
		t.Fatalf("no listener registered")
	}
	f.listener(models.ParseEvent([]byte(payload)))
}

// memBarStore is an in-memory BarStore with the repository's bucket
// resolution and merge semantics.
type memBarStore struct {
	bars map[string]*models.Bar
	err  error
}

func newMemBarStore() *memBarStore {
	return &memBarStore{bars: make(map[string]*models.Bar)}
}

func (s *memBarStore) key(symbol, interval string, bucket time.Time) string {
	return symbol + "|" + interval + "|" + bucket.Format(time.RFC3339)
}

func (s *memBarStore) RecordTrade(_ context.Context, symbol string, price, size float64, ts time.Time, interval string) error {
	if s.err != nil {
		return s.err
	}
	if price == 0 {
		return nil
	}
	symbol = strings.ToUpper(symbol)
	bucket := util.BucketStart(ts.UTC(), interval)
	k := s.key(symbol, interval, bucket)
	b, ok := s.bars[k]
	if !ok {
		b = &models.Bar{Symbol: symbol, Interval: interval, Bucket: bucket}
		s.bars[k] = b
	}
	b.ApplyTrade(price, size)
	return nil
}

func (s *memBarStore) ApplySummary(_ context.Context, symbol, interval string, ts time.Time, fields models.SummaryFields) error {
	if s.err != nil {
		return s.err
	}
	symbol = strings.ToUpper(symbol)
	bucket := util.BucketStart(ts.UTC(), interval)
	k := s.key(symbol, interval, bucket)
	b, ok := s.bars[k]
	if !ok {
		b = &models.Bar{Symbol: symbol, Interval: interval, Bucket: bucket}
		s.bars[k] = b
	}
	b.ApplySummary(fields)
	return nil
}

func (s *memBarStore) GetIntradayBars(_ context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	symbol = strings.ToUpper(symbol)
	var out []models.Bar
	for _, b := range s.bars {
		if b.Symbol == symbol && b.Interval == interval {
			out = append(out, *b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memBarStore) BulkInsert(_ context.Context, bars []models.Bar) error {
	if s.err != nil {
		return s.err
	}
	for _, b := range bars {
		cp := b
		s.bars[s.key(b.Symbol, b.Interval, b.Bucket)] = &cp
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordEvent(string)              {}
func (nopMetrics) RecordDroppedWrite(string)       {}
func (nopMetrics) RecordListenerError(string)      {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestClient(t *testing.T) (*StreamClient, *fakeTransport, *memBarStore) {
	t.Helper()
	tr := &fakeTransport{}
	store := newMemBarStore()
	l := testLogger(t)
	subs := subscriptions.NewManager(tr, l)
	return NewStreamClient(tr, store, subs, l, nopMetrics{}), tr, store
}

func TestEnsureListenerRegisteredIsIdempotent(t *testing.T) {
	c, tr, _ := newTestClient(t)
	for i := 0; i < 10; i++ {
		c.EnsureListenerRegistered()
	}
	if tr.listenerRegistrations != 1 {
		t.Fatalf("expected 1 registration, got %d", tr.listenerRegistrations)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start again: %v", err)
	}
	if tr.startCalls != 1 {
		t.Fatalf("expected 1 transport start, got %d", tr.startCalls)
	}
	if tr.listenerRegistrations != 1 {
		t.Fatalf("expected 1 registration, got %d", tr.listenerRegistrations)
	}
}

func TestReconnectAlwaysStopsThenStarts(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()

	// Transport is stopped, reconnect must still cycle it.
	if err := c.Reconnect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if tr.stopCalls != 1 || tr.startCalls != 1 {
		t.Fatalf("expected stop=1 start=1, got stop=%d start=%d", tr.stopCalls, tr.startCalls)
	}
}

func TestSubscribeRegistersListenerFirst(t *testing.T) {
	c, tr, _ := newTestClient(t)

	if err := c.Subscribe(context.Background(), []string{"AAPL"}, "web"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if tr.listenerRegistrations != 1 {
		t.Fatalf("expected listener registered by subscribe, got %d", tr.listenerRegistrations)
	}
	if len(tr.subscribed) != 1 {
		t.Fatalf("expected upstream subscribe, got %v", tr.subscribed)
	}
}

func TestTradeDispatchAggregatesOneBucket(t *testing.T) {
	c, tr, store := newTestClient(t)
	c.EnsureListenerRegistered()

	tr.deliver(t, `{"type":"trade","symbol":"spy","price":450.10,"size":100,"timestamp":"2024-01-01T09:30:15Z"}`)
	tr.deliver(t, `{"type":"trade","symbol":"SPY","price":450.50,"size":50,"timestamp":"2024-01-01T09:30:45Z"}`)

	bars, err := store.GetIntradayBars(context.Background(), "SPY", "1min", 10)
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected one bar, got %d", len(bars))
	}
	b := bars[0]
	wantBucket := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if !b.Bucket.Equal(wantBucket) {
		t.Fatalf("expected bucket %v, got %v", wantBucket, b.Bucket)
	}
	if b.Open != 450.10 || b.Close != 450.50 || b.High != 450.50 || b.Low != 450.10 {
		t.Fatalf("unexpected OHLC %+v", b)
	}
	if b.Volume != 150 {
		t.Fatalf("expected volume 150, got %v", b.Volume)
	}
}

func TestUnknownAndSymbollessEventsAreIgnored(t *testing.T) {
	c, tr, store := newTestClient(t)
	c.EnsureListenerRegistered()

	tr.deliver(t, `{"type":"heartbeat","symbol":"SPY"}`)
	tr.deliver(t, `{"type":"trade","price":450.10}`)
	tr.deliver(t, `not even json`)

	if len(store.bars) != 0 {
		t.Fatalf("expected no bars persisted, got %d", len(store.bars))
	}
}

func TestFailingListenerDoesNotBlockSiblings(t *testing.T) {
	c, tr, _ := newTestClient(t)
	c.EnsureListenerRegistered()

	c.AddListener(func(context.Context, models.Event) error {
		return errors.New("boom")
	})
	var recorded []models.Event
	c.AddListener(func(_ context.Context, ev models.Event) error {
		recorded = append(recorded, ev)
		return nil
	})

	tr.deliver(t, `{"type":"trade","symbol":"SPY","price":450.10,"size":100,"timestamp":"2024-01-01T09:30:15Z"}`)

	if len(recorded) != 1 {
		t.Fatalf("expected recording listener to receive 1 event, got %d", len(recorded))
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	c, tr, _ := newTestClient(t)
	c.EnsureListenerRegistered()

	c.AddListener(func(context.Context, models.Event) error {
		panic("listener exploded")
	})
	var count int
	c.AddListener(func(context.Context, models.Event) error {
		count++
		return nil
	})

	tr.deliver(t, `{"type":"trade","symbol":"SPY","price":1,"timestamp":"2024-01-01T09:30:15Z"}`)

	if count != 1 {
		t.Fatalf("expected sibling listener invoked once, got %d", count)
	}
}

func TestPersistenceFailureDoesNotStopFanOut(t *testing.T) {
	c, tr, store := newTestClient(t)
	c.EnsureListenerRegistered()
	store.err = errors.New("storage unavailable")

	var count int
	c.AddListener(func(context.Context, models.Event) error {
		count++
		return nil
	})

	tr.deliver(t, `{"type":"trade","symbol":"SPY","price":1,"timestamp":"2024-01-01T09:30:15Z"}`)

	if count != 1 {
		t.Fatalf("expected fan-out despite persistence failure, got %d", count)
	}
}

type fakeHistory struct {
	bars []models.Bar
	err  error
}

func (f *fakeHistory) FetchCandles(_ context.Context, _, _ string, _, _ time.Time) ([]models.Bar, error) {
	return f.bars, f.err
}

func TestBackfillInsertsFetchedBars(t *testing.T) {
	c, _, store := newTestClient(t)
	bucket := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	c.SetHistorySource(&fakeHistory{bars: []models.Bar{
		{Symbol: "SPY", Interval: "1min", Bucket: bucket, Open: 1, High: 2, Low: 1, Close: 2, Volume: 5},
		{Symbol: "SPY", Interval: "1min", Bucket: bucket.Add(time.Minute), Open: 2, High: 3, Low: 2, Close: 3, Volume: 7},
	}})

	n, err := c.Backfill(context.Background(), "SPY", "1min", bucket, bucket.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
	if len(store.bars) != 2 {
		t.Fatalf("expected 2 stored bars, got %d", len(store.bars))
	}
}

func TestBackfillWithoutHistorySourceFails(t *testing.T) {
	c, _, _ := newTestClient(t)
	from := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if _, err := c.Backfill(context.Background(), "SPY", "1min", from, from.Add(time.Minute)); err == nil {
		t.Fatal("expected error without a history source")
	}
}

func TestBackfillRejectsEmptyRange(t *testing.T) {
	c, _, _ := newTestClient(t)
	c.SetHistorySource(&fakeHistory{})
	from := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if _, err := c.Backfill(context.Background(), "SPY", "1min", from, from); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestGetIntradayBarsShapesRecords(t *testing.T) {
	c, _, store := newTestClient(t)
	bucket := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	err := store.BulkInsert(context.Background(), []models.Bar{{
		Symbol: "SPY", Interval: "1min", Bucket: bucket,
		Open: 1, High: 4, Low: 0.5, Close: 2, Volume: 10,
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	recs, err := c.GetIntradayBars(context.Background(), "SPY", "1min", 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Symbol != "SPY" || r.Interval != "1min" || !r.Timestamp.Equal(bucket) {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.Open != 1 || r.High != 4 || r.Low != 0.5 || r.Close != 2 || r.Volume != 10 {
		t.Fatalf("unexpected OHLCV %+v", r)
	}
}

func TestSummaryDispatchMergesFields(t *testing.T) {
	c, tr, store := newTestClient(t)
	c.EnsureListenerRegistered()

	tr.deliver(t, `{"type":"trade","symbol":"SPY","price":450.10,"size":100,"timestamp":"2024-01-01T09:30:15Z"}`)
	tr.deliver(t, `{"type":"SUMMARY","symbol":"SPY","timestamp":"2024-01-01T09:30:50Z","high":451.00,"volume":500}`)

	bars, err := store.GetIntradayBars(context.Background(), "SPY", "1min", 10)
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected one bar, got %d", len(bars))
	}
	b := bars[0]
	if b.High != 451.00 {
		t.Fatalf("expected summary high merged, got %v", b.High)
	}
	if b.Volume != 500 {
		t.Fatalf("expected cumulative volume 500, got %v", b.Volume)
	}
	if b.Open != 450.10 {
		t.Fatalf("expected open untouched, got %v", b.Open)
	}
}
