package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProfileNeededSignal struct {
	BuyerID   string    `json:"buyer_id"`
	FeedID    string    `json:"feed_id"`
	CommentID string    `json:"comment_id"`
	Missing   []string  `json:"missing"`
	Timestamp time.Time `json:"timestamp"`
}

type VariantNeededSignal struct {
	BuyerID   string    `json:"buyer_id"`
	FeedID    string    `json:"feed_id"`
	CommentID string    `json:"comment_id"`
	Variants  []string  `json:"variants"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderPlacedEvent struct {
	OrderID            string          `json:"order_id"`
	BuyerID            string          `json:"buyer_id"`
	FeedID             string          `json:"feed_id"`
	ProductID          string          `json:"product_id"`
	CommentID          string          `json:"comment_id"`
	AddedQuantity      int             `json:"added_quantity"`
	CumulativeQuantity int             `json:"cumulative_quantity"`
	Total              decimal.Decimal `json:"total"`
	Accumulated        bool            `json:"accumulated"`
	Timestamp          time.Time       `json:"timestamp"`
}
