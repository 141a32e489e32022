package services

import (
	"context"
	"log"
)

// Routing keys of the domain events published after a change commits.
const (
	EventOrderCreated            = "order.created"
	EventOrderStatusUpdated      = "order.status_updated"
	EventRefundRequested         = "refund.requested"
	EventRefundStatusUpdated     = "refund.status_updated"
	EventWithdrawalRequested     = "withdrawal.requested"
	EventWithdrawalStatusUpdated = "withdrawal.status_updated"
)

// EventPublisher delivers domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// publish is best-effort: the change it reports has already committed.
func publish(ctx context.Context, publisher EventPublisher, routingKey string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
