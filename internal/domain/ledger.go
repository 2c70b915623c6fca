package domain

import "time"

type LedgerKey struct {
	BuyerID string
	FeedID  string
}

// LedgerEntry is the running total of one buyer's orders against one feed post.
type LedgerEntry struct {
	BuyerID         string    `json:"buyer_id"`
	FeedID          string    `json:"feed_id"`
	Quantity        int       `json:"quantity"`
	Variant         string    `json:"variant,omitempty"`
	ExternalOrderID string    `json:"external_order_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e LedgerEntry) Key() LedgerKey {
	return LedgerKey{BuyerID: e.BuyerID, FeedID: e.FeedID}
}

func (e LedgerEntry) Linked() bool {
	return e.ExternalOrderID != ""
}
