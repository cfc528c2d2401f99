package usecase

import (
	"context"
	"fmt"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
)

// NewTickArchiveListener adapts a TickArchive into a fan-out listener. Only
// trade prints are archived; summaries and unknown frames pass through.
func NewTickArchiveListener(archive domrepo.TickArchive) Listener {
	return func(ctx context.Context, ev models.Event) error {
		if ev.Kind != models.EventTrade {
			return nil
		}
		if err := archive.Archive(ctx, ev.Trade); err != nil {
			return fmt.Errorf("archive tick: %w", err)
		}
		return nil
	}
}

// NewPublisherListener adapts an EventPublisher into a fan-out listener.
// Unknown frames are not worth a broker round trip.
func NewPublisherListener(pub domrepo.EventPublisher) Listener {
	return func(ctx context.Context, ev models.Event) error {
		if ev.Kind == models.EventUnknown {
			return nil
		}
		if err := pub.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return nil
	}
}
