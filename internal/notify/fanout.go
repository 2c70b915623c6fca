package notify

import (
	"context"
	"log/slog"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

// Channel is the outbound messaging platform.
type Channel interface {
	PushMessage(ctx context.Context, to, content string) error
	ReplyInThread(ctx context.Context, feedID, commentID, content string) error
}

// Confirmation describes an accepted command after its order was written.
type Confirmation struct {
	Event         domain.CommentEvent
	Product       *domain.Product
	Buyer         *domain.Profile
	Seller        *domain.Profile
	AddedQuantity int
	Variant       string
	Receipt       *domain.OrderReceipt
	Accumulated   bool
}

// ReplyText is the threaded reply for the confirmation.
func (c Confirmation) ReplyText() string {
	if c.Accumulated {
		return OrderAccumulatedText(c.AddedQuantity, c.Variant, c.Receipt.Quantity, c.Receipt.Total)
	}
	return OrderCreatedText(c.AddedQuantity, c.Variant, c.Receipt.Total)
}

// Fanout delivers replies and order notifications. Sends are best-effort:
// failures are logged and never returned.
type Fanout struct {
	channel Channel
	logger  *slog.Logger
}

func NewFanout(channel Channel, logger *slog.Logger) *Fanout {
	return &Fanout{
		channel: channel,
		logger:  logger,
	}
}

func (f *Fanout) Reply(ctx context.Context, ev domain.CommentEvent, text string) {
	if err := f.channel.ReplyInThread(ctx, ev.FeedID, ev.ID, text); err != nil {
		f.logger.Error("failed to reply in thread", "error", err, "comment_id", ev.ID, "feed_id", ev.FeedID)
	}
}

// Confirm sends the threaded reply, the buyer confirmation and the seller
// alert. Each send is attempted regardless of the others.
func (f *Fanout) Confirm(ctx context.Context, c Confirmation) {
	f.Reply(ctx, c.Event, c.ReplyText())

	productName := ""
	if c.Product != nil {
		productName = c.Product.Name
	}

	if c.Buyer != nil && c.Buyer.MessagingID != "" {
		if err := f.channel.PushMessage(ctx, c.Buyer.MessagingID, BuyerConfirmationText(productName, c)); err != nil {
			f.logger.Error("failed to send buyer confirmation", "error", err, "buyer_id", c.Buyer.UserID, "order_id", c.Receipt.OrderID)
		}
	}

	if c.Seller != nil && c.Seller.MessagingID != "" {
		buyerName := c.Event.AuthorID
		shipping := domain.ShippingMethod("").Label()
		if c.Buyer != nil {
			if c.Buyer.DisplayName != "" {
				buyerName = c.Buyer.DisplayName
			}
			shipping = c.Buyer.Shipping.Label()
		}
		if err := f.channel.PushMessage(ctx, c.Seller.MessagingID, SellerAlertText(buyerName, productName, shipping, c)); err != nil {
			f.logger.Error("failed to send seller alert", "error", err, "seller_id", c.Seller.UserID, "order_id", c.Receipt.OrderID)
		}
	}
}
