package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

type fakeService struct {
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	changes  []domain.FlagChange
	err      error
}

func newFakeService() *fakeService {
	return &fakeService{
		products: map[string]*domain.Product{
			"p1": {ID: "p1", Name: "Scarf", Price: decimal.NewFromInt(250), TrackStock: true, Stock: 3},
		},
		orders: map[string]*domain.Order{
			"o1": {ID: "o1", BuyerID: "b1", FeedID: "f1", Total: decimal.NewFromInt(500)},
		},
	}
}

func (f *fakeService) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products[id], nil
}

func (f *fakeService) ListProducts(_ context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeService) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[id], nil
}

func (f *fakeService) ListOrders(_ context.Context) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeService) SetOrderStatusFlag(_ context.Context, id string, flag domain.OrderFlag, value bool, actor string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	if order.Flag(flag) == value {
		return true, nil
	}
	switch flag {
	case domain.OrderFlagArrived:
		order.Arrived = value
	case domain.OrderFlagPaid:
		order.Paid = value
	case domain.OrderFlagShipped:
		order.Shipped = value
	case domain.OrderFlagClosed:
		order.Closed = value
	}
	f.changes = append(f.changes, domain.FlagChange{OrderID: id, Flag: flag, OldValue: !value, NewValue: value, Actor: actor})
	return true, nil
}

func (f *fakeService) FlagHistory(_ context.Context, id string) ([]domain.FlagChange, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.FlagChange{}
	for _, c := range f.changes {
		if c.OrderID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestMux(svc Service) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)
	return mux
}

func TestHandler_Products(t *testing.T) {
	t.Run("returns a product", func(t *testing.T) {
		mux := newTestMux(newFakeService())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var product domain.Product
		if err := json.NewDecoder(rec.Body).Decode(&product); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if product.Name != "Scarf" {
			t.Errorf("expected Scarf, got %s", product.Name)
		}
		if !product.Price.Equal(decimal.NewFromInt(250)) {
			t.Errorf("expected price 250, got %s", product.Price)
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		mux := newTestMux(newFakeService())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/missing", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 500 on store failure", func(t *testing.T) {
		svc := newFakeService()
		svc.err = errors.New("connection refused")
		mux := newTestMux(svc)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "internal server error") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})
}

func TestHandler_SetFlag(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantPaid   bool
		wantAudit  int
	}{
		{"sets flag", "/orders/o1/flags/paid", `{"value":true,"actor":"seller-1"}`, http.StatusOK, true, 1},
		{"same value is a no-op", "/orders/o1/flags/paid", `{"value":false,"actor":"seller-1"}`, http.StatusOK, false, 0},
		{"unknown flag", "/orders/o1/flags/refunded", `{"value":true,"actor":"seller-1"}`, http.StatusBadRequest, false, 0},
		{"missing value", "/orders/o1/flags/paid", `{"actor":"seller-1"}`, http.StatusBadRequest, false, 0},
		{"missing actor", "/orders/o1/flags/paid", `{"value":true}`, http.StatusBadRequest, false, 0},
		{"unknown order", "/orders/o9/flags/paid", `{"value":true,"actor":"seller-1"}`, http.StatusNotFound, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			mux := newTestMux(svc)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if svc.orders["o1"].Paid != tt.wantPaid {
				t.Errorf("expected paid %v, got %v", tt.wantPaid, svc.orders["o1"].Paid)
			}
			if len(svc.changes) != tt.wantAudit {
				t.Errorf("expected %d audit rows, got %d", tt.wantAudit, len(svc.changes))
			}
		})
	}
}

func TestHandler_FlagHistory(t *testing.T) {
	svc := newFakeService()
	mux := newTestMux(svc)

	for _, body := range []string{`{"value":true,"actor":"a"}`, `{"value":false,"actor":"b"}`} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/orders/o1/flags/shipped", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o1/flags", nil))

	var changes []domain.FlagChange
	if err := json.NewDecoder(rec.Body).Decode(&changes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Actor != "a" || changes[1].Actor != "b" {
		t.Errorf("unexpected actors: %+v", changes)
	}
}

func TestOrderError(t *testing.T) {
	err := &OrderError{Op: "create order", Err: errors.New("boom")}

	if err.Error() != "commerce create order: boom" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	var target *OrderError
	if !errors.As(error(err), &target) {
		t.Error("expected errors.As to match OrderError")
	}
}
