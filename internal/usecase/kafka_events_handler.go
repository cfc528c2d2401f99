package usecase

import (
	"context"
	"time"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
	"BarFlow/internal/repository"
)

// KafkaEventsHandler consumes replayed feed events from Kafka and feeds them
// through the bar store. Replays go through the same create-or-merge path as
// live events, so the per-bucket uniqueness guarantee holds for backfill too.
type KafkaEventsHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

// Handle decodes one message with the same tagged-union parser the live
// transport uses. Unknown payloads are dropped without error so a poison
// message never ends up cycling through the DLQ.
func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	ev := models.ParseEvent(b)

	start := time.Now()
	switch ev.Kind {
	case models.EventTrade:
		t := ev.Trade
		ts := t.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		h.metrics.RecordLatency("replay_e2e_seconds", time.Since(ts).Seconds())
		if err := h.store.RecordTrade(ctx, t.Symbol, t.Price, t.Size, ts, repository.DefaultInterval); err != nil {
			h.metrics.RecordDroppedWrite("replay_store")
			return err
		}
	case models.EventSummary:
		s := ev.Summary
		ts := s.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if err := h.store.ApplySummary(ctx, s.Symbol, s.Interval, ts, s.Fields); err != nil {
			h.metrics.RecordDroppedWrite("replay_store")
			return err
		}
	default:
		h.metrics.RecordEvent("replay_unknown")
		return nil
	}

	h.metrics.RecordLatency("replay_store_seconds", time.Since(start).Seconds())
	return nil
}
