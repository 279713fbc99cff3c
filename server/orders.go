package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
	"github.com/tanpawarit/shoptalk-assistant/pkg/orderdb"
	qstashx "github.com/tanpawarit/shoptalk-assistant/pkg/qstash"
)

const EventOrderPlaced = "order.placed"

// OrderStore is the persistent order history. *orderdb.Repository
// implements it.
type OrderStore interface {
	Create(ctx context.Context, o *orderdb.Order) error
	Get(ctx context.Context, id string) (*orderdb.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*orderdb.Order, error)
}

// EventPublisher delivers order events. *qstash.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, destination string, payload any, opts ...qstashx.PublishOptions) (string, error)
}

type OrderEvent struct {
	Type       string         `json:"type"`
	Order      *orderdb.Order `json:"order"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// OrderRecorder persists confirmed orders and announces them. Either
// collaborator may be nil.
type OrderRecorder struct {
	store       OrderStore
	publisher   EventPublisher
	destination string
}

func NewOrderRecorder(store OrderStore, publisher EventPublisher, destination string) *OrderRecorder {
	return &OrderRecorder{
		store:       store,
		publisher:   publisher,
		destination: destination,
	}
}

func (r *OrderRecorder) Store() OrderStore {
	if r == nil {
		return nil
	}
	return r.store
}

// Record stores o and publishes an order.placed event keyed by the order id,
// so a retried publish is deduplicated upstream.
func (r *OrderRecorder) Record(ctx context.Context, o *statex.Order) error {
	if r == nil || o == nil {
		return nil
	}

	row, err := orderdb.FromSession(o)
	if err != nil {
		return err
	}

	var errs []error
	if r.store != nil {
		if err := r.store.Create(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("persist order %s: %w", o.ID, err))
		}
	}
	if r.publisher != nil && r.destination != "" {
		event := OrderEvent{Type: EventOrderPlaced, Order: row, OccurredAt: o.ConfirmedAt}
		if _, err := r.publisher.Publish(ctx, r.destination, event, qstashx.PublishOptions{DeduplicationID: o.ID}); err != nil {
			errs = append(errs, fmt.Errorf("publish order %s: %w", o.ID, err))
		}
	}
	return errors.Join(errs...)
}
