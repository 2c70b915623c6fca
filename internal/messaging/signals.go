package messaging

import (
	"context"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

const (
	EventProfileNeeded = "profile_needed"
	EventVariantNeeded = "variant_needed"
	EventOrderPlaced   = "order_placed"
)

// SignalPublisher emits pipeline signals for downstream consumers (profile
// completion forms, variant pickers, fulfilment).
type SignalPublisher struct {
	profileNeeded *Producer
	variantNeeded *Producer
	orderPlaced   *Producer
}

func NewSignalPublisher(brokers []string, profileNeededTopic, variantNeededTopic, orderPlacedTopic string) *SignalPublisher {
	return &SignalPublisher{
		profileNeeded: NewProducer(brokers, profileNeededTopic),
		variantNeeded: NewProducer(brokers, variantNeededTopic),
		orderPlaced:   NewProducer(brokers, orderPlacedTopic),
	}
}

func (p *SignalPublisher) ProfileNeeded(ctx context.Context, signal domain.ProfileNeededSignal) error {
	return p.profileNeeded.Publish(ctx, signal.BuyerID, EventProfileNeeded, signal)
}

func (p *SignalPublisher) VariantNeeded(ctx context.Context, signal domain.VariantNeededSignal) error {
	return p.variantNeeded.Publish(ctx, signal.BuyerID, EventVariantNeeded, signal)
}

func (p *SignalPublisher) OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	return p.orderPlaced.Publish(ctx, event.OrderID, EventOrderPlaced, event)
}

func (p *SignalPublisher) Close() error {
	var firstErr error
	for _, producer := range []*Producer{p.profileNeeded, p.variantNeeded, p.orderPlaced} {
		if err := producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
