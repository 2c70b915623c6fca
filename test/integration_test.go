//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/commentorder/internal/app"
	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/config"
	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/ledger"
	"github.com/joao-fontenele/commentorder/internal/messaging"
	"github.com/joao-fontenele/commentorder/internal/messenger"
	"github.com/joao-fontenele/commentorder/internal/pipeline"
)

type harness struct {
	db        *sql.DB
	pipeline  *app.Pipeline
	messenger *messenger.Handler
	sync      *commerce.Synchronizer
}

func newHarness(ctx context.Context, t *testing.T, brokers []string) *harness {
	t.Helper()

	pg := SetupPostgres(ctx, t)
	t.Cleanup(pg.Cleanup)

	db := OpenDB(t, pg.ConnStr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sim := messenger.NewHandler(logger, 0)
	mux := http.NewServeMux()
	sim.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Brokers:            brokers,
			ProfileNeededTopic: "signal.profile-needed",
			VariantNeededTopic: "signal.variant-needed",
			OrderPlacedTopic:   "order.placed",
		},
		Messenger: config.MessengerConfig{URL: server.URL, Timeout: 5 * time.Second},
		Pipeline:  config.PipelineConfig{CommerceTimeout: 10 * time.Second, TxMaxRetries: 5},
	}

	p, err := app.NewPipeline(cfg, db, logger)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	return &harness{db: db, pipeline: p, messenger: sim, sync: commerce.NewSynchronizer(db)}
}

func (h *harness) stock(ctx context.Context, t *testing.T, productID string) int {
	t.Helper()
	product, err := h.sync.GetProduct(ctx, productID)
	if err != nil || product == nil {
		t.Fatalf("failed to load product %s: %v", productID, err)
	}
	return product.Stock
}

func comment(id, buyer, feed, message string) domain.CommentEvent {
	return domain.CommentEvent{ID: id, AuthorID: buyer, FeedID: feed, Message: message, Timestamp: time.Now().UTC()}
}

func TestPipelineCreatesThenAccumulates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "150.00", TrackStock: true, Stock: 5, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")

	first, err := h.pipeline.Handle(ctx, comment("c1", "buyer-1", "feed-1", "+1"))
	if err != nil {
		t.Fatalf("first comment failed: %v", err)
	}
	if first.Kind != pipeline.KindOrderCreated {
		t.Fatalf("expected order_created, got %s (%s)", first.Kind, first.Reply)
	}
	if got := h.stock(ctx, t, "prod-1"); got != 4 {
		t.Fatalf("expected stock 4, got %d", got)
	}

	second, err := h.pipeline.Handle(ctx, comment("c2", "buyer-1", "feed-1", "+2"))
	if err != nil {
		t.Fatalf("second comment failed: %v", err)
	}
	if second.Kind != pipeline.KindOrderAccumulated {
		t.Fatalf("expected order_accumulated, got %s", second.Kind)
	}
	if second.Receipt.OrderID != first.Receipt.OrderID {
		t.Fatalf("expected the same order, got %s and %s", first.Receipt.OrderID, second.Receipt.OrderID)
	}
	if got := h.stock(ctx, t, "prod-1"); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	entries, err := ledger.NewRepository().ListByFeed(ctx, h.db, "feed-1")
	if err != nil {
		t.Fatalf("failed to list ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Quantity != 3 {
		t.Fatalf("expected one ledger entry with quantity 3, got %+v", entries)
	}

	order, err := h.sync.GetOrder(ctx, first.Receipt.OrderID)
	if err != nil || order == nil {
		t.Fatalf("failed to load order: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("expected one line of quantity 3, got %+v", order.Items)
	}
	if !order.Total.Equal(decimal.RequireFromString("450")) {
		t.Fatalf("expected order total 450, got %s", order.Total)
	}

	orders, err := h.sync.ListOrders(ctx)
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected a single external order, got %d", len(orders))
	}

	// reply + buyer push + seller push per accepted comment
	sent := h.messenger.Sent()
	if len(sent) != 6 {
		t.Fatalf("expected 6 messages, got %d: %+v", len(sent), sent)
	}
	if !strings.Contains(sent[3].Content, "3 in total") {
		t.Errorf("expected cumulative reply, got %q", sent[3].Content)
	}
}

func TestPipelineRejectionsLeaveNoState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "99.90", TrackStock: true, Stock: 3, Variants: []string{"Red", "Blue"}, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")
	SeedBuyer(ctx, t, h.db, "buyer-2", "")

	tests := []struct {
		id       string
		buyer    string
		message  string
		wantKind pipeline.Kind
	}{
		{"c1", "buyer-1", "+10 red", pipeline.KindInsufficientStock},
		{"c2", "buyer-1", "+1", pipeline.KindVariantRequired},
		{"c3", "buyer-1", "+1 green", pipeline.KindUnknownVariant},
		{"c4", "buyer-2", "+1 red", pipeline.KindProfileIncomplete},
	}

	for _, tt := range tests {
		outcome, err := h.pipeline.Handle(ctx, comment(tt.id, tt.buyer, "feed-1", tt.message))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.message, err)
		}
		if outcome.Kind != tt.wantKind {
			t.Errorf("%s: expected %s, got %s", tt.message, tt.wantKind, outcome.Kind)
		}
	}

	if got := h.stock(ctx, t, "prod-1"); got != 3 {
		t.Errorf("expected stock 3, got %d", got)
	}
	var entries, receipts int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&entries)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comment_receipts`).Scan(&receipts)
	if entries != 0 || receipts != 0 {
		t.Errorf("expected no ledger entries or receipts, got %d and %d", entries, receipts)
	}
}

func TestPipelineIgnoresRedeliveredComment(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "10.00", TrackStock: true, Stock: 10, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")

	ev := comment("c1", "buyer-1", "feed-1", "+2")
	for i := 0; i < 3; i++ {
		if _, err := h.pipeline.Handle(ctx, ev); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	if got := h.stock(ctx, t, "prod-1"); got != 8 {
		t.Errorf("expected stock 8, got %d", got)
	}
}

func TestPipelineConcurrentBuyersNeverOversell(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	const stock = 5
	const buyers = 15

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "20.00", TrackStock: true, Stock: stock, SellerID: "seller-1"})
	for i := range buyers {
		SeedBuyer(ctx, t, h.db, fmt.Sprintf("buyer-%d", i), "0912345678")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := h.pipeline.Handle(ctx, comment(fmt.Sprintf("c%d", i), fmt.Sprintf("buyer-%d", i), "feed-1", "+1"))
			if err != nil {
				t.Errorf("buyer %d: %v", i, err)
				return
			}
			if outcome.Accepted() {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != stock {
		t.Errorf("expected %d accepted commands, got %d", stock, accepted)
	}
	if got := h.stock(ctx, t, "prod-1"); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

func TestPipelineConcurrentCommandsFromOneBuyer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	const stock = 6
	const commands = 12

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "20.00", TrackStock: true, Stock: stock, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := range commands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := h.pipeline.Handle(ctx, comment(fmt.Sprintf("c%d", i), "buyer-1", "feed-1", "+1"))
			if err != nil {
				t.Errorf("command %d: %v", i, err)
				return
			}
			if outcome.Accepted() {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != stock {
		t.Errorf("expected %d accepted commands, got %d", stock, accepted)
	}
	if got := h.stock(ctx, t, "prod-1"); got != stock-accepted {
		t.Errorf("expected stock %d, got %d", stock-accepted, got)
	}

	entries, err := ledger.NewRepository().ListByFeed(ctx, h.db, "feed-1")
	if err != nil {
		t.Fatalf("failed to list ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Quantity != accepted {
		t.Fatalf("expected one ledger entry with quantity %d, got %+v", accepted, entries)
	}

	orders, err := h.sync.ListOrders(ctx)
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders))
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].Quantity != accepted {
		t.Errorf("expected one line of quantity %d, got %+v", accepted, orders[0].Items)
	}
}

func TestPipelineOrderLimitOnUntrackedProduct(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "120.00", TrackStock: false, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")

	tests := []struct {
		id       string
		message  string
		wantKind pipeline.Kind
	}{
		{"c1", "+3000000000", pipeline.KindNotACommand},
		{"c2", "+83333334", pipeline.KindOrderLimit},
		{"c3", "+83333333", pipeline.KindOrderCreated},
		{"c4", "+1", pipeline.KindOrderLimit},
	}

	for _, tt := range tests {
		outcome, err := h.pipeline.Handle(ctx, comment(tt.id, "buyer-1", "feed-1", tt.message))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.message, err)
		}
		if outcome.Kind != tt.wantKind {
			t.Errorf("%s: expected %s, got %s", tt.message, tt.wantKind, outcome.Kind)
		}
	}

	entries, err := ledger.NewRepository().ListByFeed(ctx, h.db, "feed-1")
	if err != nil {
		t.Fatalf("failed to list ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Quantity != 83333333 {
		t.Fatalf("expected one ledger entry at the limit, got %+v", entries)
	}
}

func TestSetOrderStatusFlagAudit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	h := newHarness(ctx, t, nil)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "10.00", TrackStock: false, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")

	outcome, err := h.pipeline.Handle(ctx, comment("c1", "buyer-1", "feed-1", "+1"))
	if err != nil || !outcome.Accepted() {
		t.Fatalf("expected accepted order, got %s, %v", outcome.Kind, err)
	}
	orderID := outcome.Receipt.OrderID

	mux := http.NewServeMux()
	commerce.NewHandler(h.sync, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)

	put := func(body string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/flags/paid", strings.NewReader(body)))
		return rec.Code
	}

	if code := put(`{"value":true,"actor":"seller-1"}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := put(`{"value":true,"actor":"seller-1"}`); code != http.StatusOK {
		t.Fatalf("expected 200 for no-op, got %d", code)
	}

	found, err := h.sync.SetOrderStatusFlag(ctx, "00000000-0000-0000-0000-000000000000", domain.OrderFlagPaid, true, "seller-1")
	if err != nil || found {
		t.Errorf("expected unknown order to report not found, got %v, %v", found, err)
	}

	changes, err := h.sync.FlagHistory(ctx, orderID)
	if err != nil {
		t.Fatalf("failed to read flag history: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(changes))
	}
	if changes[0].OldValue || !changes[0].NewValue || changes[0].Actor != "seller-1" {
		t.Errorf("unexpected audit row %+v", changes[0])
	}

	order, _ := h.sync.GetOrder(ctx, orderID)
	if !order.Paid || order.Shipped {
		t.Errorf("expected only paid set, got %+v", order)
	}
}

func TestSignalsPublishedToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	h := newHarness(ctx, t, brokers)
	Seed(ctx, t, h.db, "feed-1", SeedProduct{ID: "prod-1", Price: "10.00", TrackStock: true, Stock: 10, SellerID: "seller-1"})
	SeedBuyer(ctx, t, h.db, "buyer-1", "0912345678")
	SeedBuyer(ctx, t, h.db, "buyer-2", "")

	if _, err := h.pipeline.Handle(ctx, comment("c1", "buyer-2", "feed-1", "+1")); err != nil {
		t.Fatalf("incomplete profile comment failed: %v", err)
	}
	if _, err := h.pipeline.Handle(ctx, comment("c2", "buyer-1", "feed-1", "+3")); err != nil {
		t.Fatalf("order comment failed: %v", err)
	}

	var profileSignal domain.ProfileNeededSignal
	readOne(ctx, t, brokers, "signal.profile-needed", &profileSignal)
	if profileSignal.BuyerID != "buyer-2" || len(profileSignal.Missing) != 1 || profileSignal.Missing[0] != "phone" {
		t.Errorf("unexpected profile signal %+v", profileSignal)
	}

	var placed domain.OrderPlacedEvent
	readOne(ctx, t, brokers, "order.placed", &placed)
	if placed.BuyerID != "buyer-1" || placed.AddedQuantity != 3 || placed.Accumulated {
		t.Errorf("unexpected order placed event %+v", placed)
	}
	if !placed.Total.Equal(decimal.RequireFromString("30")) {
		t.Errorf("expected total 30, got %s", placed.Total)
	}
}

func readOne(ctx context.Context, t *testing.T, brokers []string, topic string, out any) {
	t.Helper()

	consumer := messaging.NewConsumer(brokers, topic, "integration-"+topic, messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	readCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var payload []byte
	_ = consumer.Consume(readCtx, func(_ context.Context, p []byte) error {
		payload = p
		cancel()
		return nil
	})

	if payload == nil {
		t.Fatalf("no message received on %s", topic)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("failed to decode %s message: %v", topic, err)
	}
}
