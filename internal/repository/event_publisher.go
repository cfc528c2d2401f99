package repository

import (
	"context"

	"BarFlow/internal/domain/models"
	"BarFlow/internal/domain/repository"
	pkgkafka "BarFlow/pkg/kafka"
)

// KafkaEventPublisher fans feed events out to a Kafka topic. Trade payloads
// use the same schema the replay consumer reads back.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates the Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventTrade:
		t := ev.Trade
		return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), map[string]interface{}{
			"type":      "trade",
			"symbol":    t.Symbol,
			"price":     t.Price,
			"size":      t.Size,
			"timestamp": t.Timestamp.Unix(),
		})
	case models.EventSummary:
		s := ev.Summary
		payload := map[string]interface{}{
			"type":      "summary",
			"symbol":    s.Symbol,
			"interval":  s.Interval,
			"timestamp": s.Timestamp.Unix(),
		}
		if s.Fields.Open != nil {
			payload["open"] = *s.Fields.Open
		}
		if s.Fields.High != nil {
			payload["high"] = *s.Fields.High
		}
		if s.Fields.Low != nil {
			payload["low"] = *s.Fields.Low
		}
		if s.Fields.Close != nil {
			payload["close"] = *s.Fields.Close
		}
		if s.Fields.Volume != nil {
			payload["volume"] = *s.Fields.Volume
		}
		return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), payload)
	default:
		return nil
	}
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
