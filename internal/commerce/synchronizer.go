package commerce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

var ErrUnknownFlag = errors.New("unknown order flag")

// OrderError wraps a failure of a commerce mutation. Op names the mutation.
type OrderError struct {
	Op  string
	Err error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("commerce %s: %v", e.Op, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

type OrderRequest struct {
	BuyerID   string
	FeedID    string
	ProductID string
	Quantity  int
	Variant   string
}

// Synchronizer is the only writer of products and external orders.
// Mutations take a database.Querier so they join the caller's transaction.
type Synchronizer struct {
	db       *sql.DB
	products *ProductRepository
	orders   *OrderRepository
	now      func() time.Time
}

func NewSynchronizer(db *sql.DB) *Synchronizer {
	return &Synchronizer{
		db:       db,
		products: NewProductRepository(),
		orders:   NewOrderRepository(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Synchronizer) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.Get(ctx, s.db, id)
}

func (s *Synchronizer) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx, s.db)
}

// LockProduct reads the product and holds its row lock for the rest of the
// transaction behind q.
func (s *Synchronizer) LockProduct(ctx context.Context, q database.Querier, id string) (*domain.Product, error) {
	return s.products.GetForUpdate(ctx, q, id)
}

func (s *Synchronizer) CreateOrder(ctx context.Context, q database.Querier, req OrderRequest) (*domain.OrderReceipt, error) {
	if req.Quantity <= 0 {
		return nil, &OrderError{Op: "create order", Err: fmt.Errorf("invalid quantity %d", req.Quantity)}
	}

	product, err := s.products.GetForUpdate(ctx, q, req.ProductID)
	if err != nil {
		return nil, &OrderError{Op: "create order", Err: err}
	}

	total := product.Total(req.Quantity)
	order := &domain.Order{
		BuyerID: req.BuyerID,
		FeedID:  req.FeedID,
		Items: []domain.OrderItem{{
			ProductID: product.ID,
			Variant:   req.Variant,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Subtotal:  total,
		}},
		Total:     total,
		CreatedAt: s.now(),
	}

	if err := s.orders.Insert(ctx, q, order); err != nil {
		return nil, &OrderError{Op: "create order", Err: err}
	}

	if product.TrackStock {
		if err := s.products.DecrementStock(ctx, q, product.ID, req.Quantity); err != nil {
			return nil, &OrderError{Op: "create order", Err: err}
		}
	}

	return &domain.OrderReceipt{
		OrderID:   order.ID,
		UnitPrice: product.Price,
		Quantity:  req.Quantity,
		Total:     total,
	}, nil
}

// AddToOrder grows the existing order's line for the product by
// req.Quantity, repricing it at the current product price.
func (s *Synchronizer) AddToOrder(ctx context.Context, q database.Querier, orderID string, req OrderRequest) (*domain.OrderReceipt, error) {
	if req.Quantity <= 0 {
		return nil, &OrderError{Op: "add to order", Err: fmt.Errorf("invalid quantity %d", req.Quantity)}
	}

	product, err := s.products.GetForUpdate(ctx, q, req.ProductID)
	if err != nil {
		return nil, &OrderError{Op: "add to order", Err: err}
	}

	item, total, err := s.orders.AddToItem(ctx, q, orderID, product.ID, req.Variant, req.Quantity, product.Price, s.now())
	if err != nil {
		return nil, &OrderError{Op: "add to order", Err: err}
	}

	if product.TrackStock {
		if err := s.products.DecrementStock(ctx, q, product.ID, req.Quantity); err != nil {
			return nil, &OrderError{Op: "add to order", Err: err}
		}
	}

	return &domain.OrderReceipt{
		OrderID:   orderID,
		UnitPrice: product.Price,
		Quantity:  item.Quantity,
		Total:     total,
	}, nil
}

// SetOrderStatusFlag sets one of the order's status flags. It reports false
// when the order does not exist. Setting a flag to its current value is a
// no-op; an actual change is recorded in the flag audit log.
func (s *Synchronizer) SetOrderStatusFlag(ctx context.Context, orderID string, flag domain.OrderFlag, value bool, actor string) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}

	found := true
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := s.orders.GetFlagForUpdate(ctx, tx, orderID, flag)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				found = false
				return nil
			}
			return err
		}

		if current == value {
			return nil
		}

		return s.orders.SetFlag(ctx, tx, domain.FlagChange{
			OrderID:   orderID,
			Flag:      flag,
			OldValue:  current,
			NewValue:  value,
			Actor:     actor,
			ChangedAt: s.now(),
		})
	})
	if err != nil {
		return false, &OrderError{Op: "set status flag", Err: err}
	}

	return found, nil
}

func (s *Synchronizer) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, s.db, id)
}

func (s *Synchronizer) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx, s.db)
}

func (s *Synchronizer) FlagHistory(ctx context.Context, orderID string) ([]domain.FlagChange, error) {
	return s.orders.FlagHistory(ctx, s.db, orderID)
}
