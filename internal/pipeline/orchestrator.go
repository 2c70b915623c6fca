// Package pipeline turns feed comments into orders.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/commentorder/internal/command"
	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/eligibility"
	"github.com/joao-fontenele/commentorder/internal/inventory"
	"github.com/joao-fontenele/commentorder/internal/ledger"
	"github.com/joao-fontenele/commentorder/internal/notify"
	"github.com/joao-fontenele/commentorder/internal/telemetry"
)

var tracer = otel.Tracer("commentorder/pipeline")

var errDuplicate = errors.New("comment already applied")

type Deps struct {
	Feeds    FeedReader
	Profiles ProfileReader
	Store    Store
	Notifier Notifier
	// Signals may be nil when no broker is configured.
	Signals Signals
	Logger  *slog.Logger

	CommerceTimeout time.Duration
	Now             func() time.Time
}

type Orchestrator struct {
	feeds    FeedReader
	profiles ProfileReader
	gate     *eligibility.Gate
	store    Store
	notifier Notifier
	signals  Signals
	metrics  *telemetry.PipelineMetrics
	logger   *slog.Logger

	commerceTimeout time.Duration
	now             func() time.Time
}

func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Feeds == nil || deps.Profiles == nil || deps.Store == nil || deps.Notifier == nil {
		return nil, errors.New("pipeline: feeds, profiles, store and notifier are required")
	}

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}

	o := &Orchestrator{
		feeds:           deps.Feeds,
		profiles:        deps.Profiles,
		gate:            eligibility.NewGate(deps.Profiles),
		store:           deps.Store,
		notifier:        deps.Notifier,
		signals:         deps.Signals,
		metrics:         metrics,
		logger:          deps.Logger,
		commerceTimeout: deps.CommerceTimeout,
		now:             deps.Now,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.commerceTimeout <= 0 {
		o.commerceTimeout = 5 * time.Second
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	return o, nil
}

// Handle processes one comment event. The returned error is non-nil only for
// infrastructure failures, in which case the event may be delivered again.
// Every other result, including rejections, is described by the Outcome.
func (o *Orchestrator) Handle(ctx context.Context, ev domain.CommentEvent) (Outcome, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "pipeline.handle",
		trace.WithAttributes(
			attribute.String("comment.id", ev.ID),
			attribute.String("buyer.id", ev.AuthorID),
			attribute.String("feed.id", ev.FeedID),
		),
	)
	defer span.End()

	outcome, err := o.handle(ctx, ev)

	span.SetAttributes(attribute.String("pipeline.outcome", string(outcome.Kind)))
	o.metrics.Record(ctx, string(outcome.Kind), time.Since(start))

	return outcome, err
}

// accepted carries the committed state of a successful transition out of the
// store transaction.
type accepted struct {
	product    domain.Product
	entry      *domain.LedgerEntry
	receipt    *domain.OrderReceipt
	transition ledger.Transition
	variant    string
}

func (o *Orchestrator) handle(ctx context.Context, ev domain.CommentEvent) (Outcome, error) {
	if ev.IsReply() {
		return Outcome{Kind: KindIgnoredReply}, nil
	}

	cmd, ok := command.Parse(ev.Message)
	if !ok {
		return Outcome{Kind: KindNotACommand}, nil
	}

	post, err := o.feeds.Get(ctx, ev.FeedID)
	if err != nil {
		return o.fail(ctx, ev, "", fmt.Errorf("resolve feed post: %w", err))
	}
	if post == nil || !post.HasProduct() {
		return o.reject(ctx, ev, KindNoLinkedProduct, notify.NoLinkedProductText), nil
	}

	buyer, eligible, err := o.gate.Check(ctx, ev.AuthorID)
	if err != nil {
		return o.fail(ctx, ev, post.ProductID, err)
	}
	if !eligible.Valid() {
		outcome := o.reject(ctx, ev, KindProfileIncomplete, notify.ProfileIncompleteText(eligible.MissingNames()))
		if o.signals != nil {
			err := o.signals.ProfileNeeded(ctx, domain.ProfileNeededSignal{
				BuyerID:   ev.AuthorID,
				FeedID:    ev.FeedID,
				CommentID: ev.ID,
				Missing:   eligible.MissingNames(),
				Timestamp: o.now(),
			})
			if err != nil {
				o.logger.Error("failed to publish profile needed signal", "error", err, "comment_id", ev.ID, "buyer_id", ev.AuthorID)
			}
		}
		return outcome, nil
	}

	result, err := o.apply(ctx, ev, post.ProductID, cmd)
	if err != nil {
		return o.resolve(ctx, ev, post.ProductID, err)
	}

	o.confirm(ctx, ev, buyer, cmd, result)

	kind := KindOrderCreated
	if result.transition == ledger.TransitionAccumulate {
		kind = KindOrderAccumulated
	}

	o.logger.Info("order command applied",
		"comment_id", ev.ID,
		"buyer_id", ev.AuthorID,
		"feed_id", ev.FeedID,
		"product_id", post.ProductID,
		"order_id", result.receipt.OrderID,
		"transition", result.transition.String(),
		"quantity", result.entry.Quantity,
	)

	return Outcome{
		Kind:    kind,
		Reply:   confirmation(ev, buyer, nil, cmd, result).ReplyText(),
		Entry:   result.entry,
		Receipt: result.receipt,
	}, nil
}

// apply validates and mutates under the product lock. Nothing is written
// unless every step succeeds.
func (o *Orchestrator) apply(ctx context.Context, ev domain.CommentEvent, productID string, cmd command.Command) (*accepted, error) {
	ctx, cancel := context.WithTimeout(ctx, o.commerceTimeout)
	defer cancel()

	key := domain.LedgerKey{BuyerID: ev.AuthorID, FeedID: ev.FeedID}

	var result *accepted
	err := o.store.WithProduct(ctx, productID, func(ctx context.Context, tx Tx) error {
		result = nil

		claimed, err := tx.ClaimComment(ctx, ev.ID, key)
		if err != nil {
			return err
		}
		if !claimed {
			return errDuplicate
		}

		product := tx.Product()
		variant, err := inventory.Validate(product, cmd.Quantity, cmd.Variant)
		if err != nil {
			return err
		}

		entry, err := tx.LedgerEntry(ctx, key)
		if err != nil {
			return err
		}

		transition, err := ledger.Decide(entry)
		if err != nil {
			return err
		}

		req := commerce.OrderRequest{
			BuyerID:   ev.AuthorID,
			FeedID:    ev.FeedID,
			ProductID: product.ID,
			Quantity:  cmd.Quantity,
			Variant:   variant,
		}

		var receipt *domain.OrderReceipt
		now := o.now()

		switch transition {
		case ledger.TransitionOpen:
			receipt, err = tx.CreateOrder(ctx, req)
			if err != nil {
				return err
			}
			entry = ledger.Open(key, cmd.Quantity, variant, receipt.OrderID, now)
		case ledger.TransitionAccumulate:
			if err := inventory.CheckOrderLimit(product, entry.Quantity, cmd.Quantity); err != nil {
				return err
			}
			receipt, err = tx.AddToOrder(ctx, entry.ExternalOrderID, req)
			if err != nil {
				return err
			}
			if err := ledger.Accumulate(entry, cmd.Quantity, variant, now); err != nil {
				return err
			}
		}

		if err := tx.SaveLedgerEntry(ctx, entry, transition == ledger.TransitionOpen); err != nil {
			return err
		}

		result = &accepted{
			product:    product,
			entry:      entry,
			receipt:    receipt,
			transition: transition,
			variant:    variant,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolve maps an aborted transaction to its outcome. A commerce failure is
// final: the buyer is told and the event is acknowledged, so the order is
// never placed again without a new command.
func (o *Orchestrator) resolve(ctx context.Context, ev domain.CommentEvent, productID string, err error) (Outcome, error) {
	var orderErr *commerce.OrderError

	switch {
	case errors.Is(err, errDuplicate):
		o.logger.Info("duplicate comment ignored", "comment_id", ev.ID, "buyer_id", ev.AuthorID, "feed_id", ev.FeedID)
		return Outcome{Kind: KindDuplicate}, nil
	case errors.Is(err, database.ErrProductNotFound):
		return o.reject(ctx, ev, KindNoLinkedProduct, notify.NoLinkedProductText), nil
	case inventory.IsRejection(err):
		return o.rejectInventory(ctx, ev, err), nil
	case errors.Is(err, ledger.ErrInconsistent):
		o.logger.Error("ledger entry without external order",
			"error", err,
			"comment_id", ev.ID,
			"buyer_id", ev.AuthorID,
			"feed_id", ev.FeedID,
			"product_id", productID,
		)
		return o.reject(ctx, ev, KindLedgerInconsistent, notify.OrderFailedText), nil
	case errors.As(err, &orderErr):
		o.logger.Error("commerce order failed",
			"error", err,
			"op", orderErr.Op,
			"comment_id", ev.ID,
			"buyer_id", ev.AuthorID,
			"feed_id", ev.FeedID,
			"product_id", productID,
		)
		recordFailure(ctx, err)
		o.notifier.Reply(ctx, ev, notify.OrderFailedText)
		return Outcome{Kind: KindOrderFailed, Reply: notify.OrderFailedText}, nil
	}

	return o.fail(ctx, ev, productID, err)
}

func (o *Orchestrator) rejectInventory(ctx context.Context, ev domain.CommentEvent, err error) Outcome {
	var (
		insufficient *inventory.InsufficientStockError
		required     *inventory.VariantRequiredError
		unknown      *inventory.UnknownVariantError
		limit        *inventory.OrderLimitError
	)

	switch {
	case errors.As(err, &insufficient):
		return o.reject(ctx, ev, KindInsufficientStock, notify.InsufficientStockText(insufficient.Available))
	case errors.As(err, &required):
		o.variantNeeded(ctx, ev, required.Options)
		return o.reject(ctx, ev, KindVariantRequired, notify.VariantRequiredText(required.Options))
	case errors.As(err, &unknown):
		o.variantNeeded(ctx, ev, unknown.Options)
		return o.reject(ctx, ev, KindUnknownVariant, notify.UnknownVariantText(unknown.Variant, unknown.Options))
	case errors.As(err, &limit):
		return o.reject(ctx, ev, KindOrderLimit, notify.OrderLimitText(limit.Max, limit.Ordered))
	}
	return o.reject(ctx, ev, KindOutOfStock, notify.OutOfStockText)
}

func (o *Orchestrator) reject(ctx context.Context, ev domain.CommentEvent, kind Kind, reply string) Outcome {
	o.notifier.Reply(ctx, ev, reply)
	o.logger.Info("order command rejected", "comment_id", ev.ID, "buyer_id", ev.AuthorID, "feed_id", ev.FeedID, "reason", string(kind))
	return Outcome{Kind: kind, Reply: reply}
}

// fail handles infrastructure failures outside the commerce engine. Nothing
// was written, so the error is returned for the event to be delivered again.
// The buyer is not told yet; the redelivery produces the reply.
func (o *Orchestrator) fail(ctx context.Context, ev domain.CommentEvent, productID string, err error) (Outcome, error) {
	o.logger.Error("order command failed",
		"error", err,
		"comment_id", ev.ID,
		"buyer_id", ev.AuthorID,
		"feed_id", ev.FeedID,
		"product_id", productID,
	)
	recordFailure(ctx, err)
	return Outcome{Kind: KindOrderFailed}, err
}

func recordFailure(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (o *Orchestrator) variantNeeded(ctx context.Context, ev domain.CommentEvent, options []string) {
	if o.signals == nil {
		return
	}
	err := o.signals.VariantNeeded(ctx, domain.VariantNeededSignal{
		BuyerID:   ev.AuthorID,
		FeedID:    ev.FeedID,
		CommentID: ev.ID,
		Variants:  options,
		Timestamp: o.now(),
	})
	if err != nil {
		o.logger.Error("failed to publish variant needed signal", "error", err, "comment_id", ev.ID, "buyer_id", ev.AuthorID)
	}
}

// confirm runs after commit. Nothing here can undo the order.
func (o *Orchestrator) confirm(ctx context.Context, ev domain.CommentEvent, buyer *domain.Profile, cmd command.Command, result *accepted) {
	var seller *domain.Profile
	if result.product.SellerID != "" {
		var err error
		seller, err = o.profiles.Get(ctx, result.product.SellerID)
		if err != nil {
			o.logger.Error("failed to load seller profile", "error", err, "seller_id", result.product.SellerID)
		}
	}

	o.notifier.Confirm(ctx, confirmation(ev, buyer, seller, cmd, result))

	if o.signals == nil {
		return
	}
	err := o.signals.OrderPlaced(ctx, domain.OrderPlacedEvent{
		OrderID:            result.receipt.OrderID,
		BuyerID:            ev.AuthorID,
		FeedID:             ev.FeedID,
		ProductID:          result.product.ID,
		CommentID:          ev.ID,
		AddedQuantity:      cmd.Quantity,
		CumulativeQuantity: result.entry.Quantity,
		Total:              result.receipt.Total,
		Accumulated:        result.transition == ledger.TransitionAccumulate,
		Timestamp:          o.now(),
	})
	if err != nil {
		o.logger.Error("failed to publish order placed event", "error", err, "order_id", result.receipt.OrderID)
	}
}

func confirmation(ev domain.CommentEvent, buyer, seller *domain.Profile, cmd command.Command, result *accepted) notify.Confirmation {
	product := result.product
	return notify.Confirmation{
		Event:         ev,
		Product:       &product,
		Buyer:         buyer,
		Seller:        seller,
		AddedQuantity: cmd.Quantity,
		Variant:       result.variant,
		Receipt:       result.receipt,
		Accumulated:   result.transition == ledger.TransitionAccumulate,
	}
}
