package pipeline

import (
	"context"

	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/notify"
)

type FeedReader interface {
	Get(ctx context.Context, feedID string) (*domain.FeedPost, error)
}

type ProfileReader interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// Store runs fn in one transaction that holds the product's row lock for its
// whole duration. Returning an error from fn rolls everything back. fn may be
// invoked more than once when the transaction is retried.
type Store interface {
	WithProduct(ctx context.Context, productID string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available while the product lock is held.
type Tx interface {
	Product() domain.Product
	LedgerEntry(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error)
	ClaimComment(ctx context.Context, commentID string, key domain.LedgerKey) (bool, error)
	CreateOrder(ctx context.Context, req commerce.OrderRequest) (*domain.OrderReceipt, error)
	AddToOrder(ctx context.Context, orderID string, req commerce.OrderRequest) (*domain.OrderReceipt, error)
	SaveLedgerEntry(ctx context.Context, entry *domain.LedgerEntry, created bool) error
}

type Notifier interface {
	Reply(ctx context.Context, ev domain.CommentEvent, text string)
	Confirm(ctx context.Context, c notify.Confirmation)
}

type Signals interface {
	ProfileNeeded(ctx context.Context, signal domain.ProfileNeededSignal) error
	VariantNeeded(ctx context.Context, signal domain.VariantNeededSignal) error
	OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}
