package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderFlag string

const (
	OrderFlagArrived OrderFlag = "arrived"
	OrderFlagPaid    OrderFlag = "paid"
	OrderFlagShipped OrderFlag = "shipped"
	OrderFlagClosed  OrderFlag = "closed"
)

func (f OrderFlag) Valid() bool {
	switch f {
	case OrderFlagArrived, OrderFlagPaid, OrderFlagShipped, OrderFlagClosed:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID        string          `json:"id"`
	BuyerID   string          `json:"buyer_id"`
	FeedID    string          `json:"feed_id"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Arrived   bool            `json:"arrived"`
	Paid      bool            `json:"paid"`
	Shipped   bool            `json:"shipped"`
	Closed    bool            `json:"closed"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (o Order) Flag(f OrderFlag) bool {
	switch f {
	case OrderFlagArrived:
		return o.Arrived
	case OrderFlagPaid:
		return o.Paid
	case OrderFlagShipped:
		return o.Shipped
	case OrderFlagClosed:
		return o.Closed
	}
	return false
}

type FlagChange struct {
	OrderID   string    `json:"order_id"`
	Flag      OrderFlag `json:"flag"`
	OldValue  bool      `json:"old_value"`
	NewValue  bool      `json:"new_value"`
	Actor     string    `json:"actor"`
	ChangedAt time.Time `json:"changed_at"`
}

// OrderReceipt reports the state of an external order after a create or an
// accumulation. Quantity and Total are cumulative.
type OrderReceipt struct {
	OrderID   string          `json:"order_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}
