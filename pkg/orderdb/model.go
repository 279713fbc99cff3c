package orderdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrInvalidStatus = errors.New("invalid order status")
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          string          `bun:"id,pk" json:"id"`
	SessionID   string          `bun:"session_id,notnull" json:"session_id"`
	UserID      string          `bun:"user_id,nullzero" json:"user_id,omitempty"`
	Status      Status          `bun:"status,notnull" json:"status"`
	ItemCount   int             `bun:"item_count,notnull" json:"item_count"`
	Total       decimal.Decimal `bun:"total,type:numeric(14,2),notnull" json:"total"`
	ConfirmedAt time.Time       `bun:"confirmed_at,notnull" json:"confirmed_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        int64           `bun:"id,pk,autoincrement" json:"-"`
	OrderID   string          `bun:"order_id,notnull" json:"-"`
	Position  int             `bun:"position,notnull" json:"-"`
	ProductID string          `bun:"product_id,notnull" json:"product_id"`
	Name      string          `bun:"name,notnull" json:"name"`
	UnitPrice decimal.Decimal `bun:"unit_price,type:numeric(14,2),notnull" json:"unit_price"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
}

// FromSession converts a confirmed session order into its persistent form.
func FromSession(o *statex.Order) (*Order, error) {
	if o == nil || o.ID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	if len(o.Lines) == 0 {
		return nil, fmt.Errorf("%w: order %s has no lines", ErrInvalidOrder, o.ID)
	}

	out := &Order{
		ID:          o.ID,
		SessionID:   o.SessionID,
		UserID:      o.UserID,
		Status:      StatusConfirmed,
		ItemCount:   o.ItemCount,
		Total:       o.Total,
		ConfirmedAt: o.ConfirmedAt.UTC(),
		UpdatedAt:   o.ConfirmedAt.UTC(),
		Items:       make([]*OrderItem, 0, len(o.Lines)),
	}
	for i, l := range o.Lines {
		out.Items = append(out.Items, &OrderItem{
			OrderID:   o.ID,
			Position:  i,
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			UnitPrice: l.Product.Price,
			Quantity:  l.Quantity,
		})
	}
	return out, nil
}
