// Package ledger keeps the running total of each buyer's order against a feed
// post and decides whether a command opens a new order or accumulates into an
// existing one.
package ledger

import (
	"errors"
	"time"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

type Transition int

const (
	// TransitionOpen creates the entry and its external order.
	TransitionOpen Transition = iota
	// TransitionAccumulate adds to an entry that already has an external order.
	TransitionAccumulate
)

func (t Transition) String() string {
	if t == TransitionAccumulate {
		return "accumulate"
	}
	return "open"
}

// ErrQuantityLimit means an accumulation would take the entry past
// domain.MaxQuantity.
var ErrQuantityLimit = errors.New("ledger quantity limit reached")

// ErrInconsistent means an entry exists without a linked external order.
var ErrInconsistent = errors.New("ledger entry has no linked external order")

// Decide picks the transition for an accepted command given the current entry
// for its key (nil when absent).
func Decide(entry *domain.LedgerEntry) (Transition, error) {
	if entry == nil {
		return TransitionOpen, nil
	}
	if !entry.Linked() {
		return 0, ErrInconsistent
	}
	return TransitionAccumulate, nil
}

func Open(key domain.LedgerKey, quantity int, variant, orderID string, now time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		BuyerID:         key.BuyerID,
		FeedID:          key.FeedID,
		Quantity:        quantity,
		Variant:         variant,
		ExternalOrderID: orderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Accumulate adds quantity to entry. The last-used variant only changes when
// the new command names one. The entry is left untouched on error.
func Accumulate(entry *domain.LedgerEntry, quantity int, variant string, now time.Time) error {
	if quantity > domain.MaxQuantity-entry.Quantity {
		return ErrQuantityLimit
	}
	entry.Quantity += quantity
	if variant != "" {
		entry.Variant = variant
	}
	entry.UpdatedAt = now
	return nil
}
