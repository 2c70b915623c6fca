package pipeline

import (
	"context"
	"database/sql"

	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/ledger"
)

// PostgresStore runs each command in a READ COMMITTED transaction that
// starts by locking the product row. Serialization failures and deadlocks
// re-run the whole transaction.
type PostgresStore struct {
	db       *sql.DB
	commerce *commerce.Synchronizer
	ledger   *ledger.Repository
	opts     database.TxOptions
}

func NewPostgresStore(db *sql.DB, sync *commerce.Synchronizer, entries *ledger.Repository, maxRetries int) *PostgresStore {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = maxRetries
	return &PostgresStore{
		db:       db,
		commerce: sync,
		ledger:   entries,
		opts:     opts,
	}
}

func (s *PostgresStore) WithProduct(ctx context.Context, productID string, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithRetry(ctx, s.db, s.opts, func(tx *sql.Tx) error {
		product, err := s.commerce.LockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		return fn(ctx, &postgresTx{store: s, tx: tx, product: *product})
	})
}

type postgresTx struct {
	store   *PostgresStore
	tx      *sql.Tx
	product domain.Product
}

func (t *postgresTx) Product() domain.Product {
	return t.product
}

func (t *postgresTx) LedgerEntry(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	return t.store.ledger.Get(ctx, t.tx, key)
}

func (t *postgresTx) ClaimComment(ctx context.Context, commentID string, key domain.LedgerKey) (bool, error) {
	return t.store.ledger.ClaimComment(ctx, t.tx, commentID, key)
}

func (t *postgresTx) CreateOrder(ctx context.Context, req commerce.OrderRequest) (*domain.OrderReceipt, error) {
	return t.store.commerce.CreateOrder(ctx, t.tx, req)
}

func (t *postgresTx) AddToOrder(ctx context.Context, orderID string, req commerce.OrderRequest) (*domain.OrderReceipt, error) {
	return t.store.commerce.AddToOrder(ctx, t.tx, orderID, req)
}

func (t *postgresTx) SaveLedgerEntry(ctx context.Context, entry *domain.LedgerEntry, created bool) error {
	if created {
		return t.store.ledger.Insert(ctx, t.tx, entry)
	}
	return t.store.ledger.Update(ctx, t.tx, entry)
}
