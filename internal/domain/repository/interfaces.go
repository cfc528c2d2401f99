package repository

import (
	"context"
	"time"

	"BarFlow/internal/domain/models"
)

// Transport is the managed upstream connection delivering feed events. The
// concrete implementation lives in internal/service/marketws; tests use fakes.
// Subscribe/Unsubscribe are assumed idempotent on the upstream side.
type Transport interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error
	RegisterListener(fn func(models.Event))
	IsRunning() bool
}

// BarStore persists OHLCV bars keyed by the unique (symbol, interval, bucket)
// triple.
type BarStore interface {
	RecordTrade(ctx context.Context, symbol string, price, size float64, ts time.Time, interval string) error
	ApplySummary(ctx context.Context, symbol, interval string, ts time.Time, fields models.SummaryFields) error
	GetIntradayBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
	BulkInsert(ctx context.Context, bars []models.Bar) error
}

// HistorySource fetches historical candles from the feed's REST API,
// used to backfill bars for ranges the live stream never covered.
type HistorySource interface {
	FetchCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Bar, error)
}

// TickArchive appends raw trade prints to cold storage.
type TickArchive interface {
	Archive(ctx context.Context, t *models.TradeEvent) error
	Close() error
}

// EventPublisher fans events out to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.Event) error
	Close() error
}

type Metrics interface {
	RecordEvent(kind string)
	RecordDroppedWrite(reason string)
	RecordListenerError(listener string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
