package commerce

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

const productColumns = `id, name, price, track_stock, stock_quantity, variants, seller_id, updated_at`

type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var variants []string
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.TrackStock,
		&product.Stock,
		pq.Array(&variants),
		&product.SellerID,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.Variants = variants
	return product, nil
}

// Get returns nil, nil when the product does not exist.
func (r *ProductRepository) Get(ctx context.Context, q database.Querier, id string) (*domain.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// GetForUpdate locks the product row until the surrounding transaction ends.
func (r *ProductRepository) GetForUpdate(ctx context.Context, q database.Querier, id string) (*domain.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, q database.Querier) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, q database.Querier, id string, quantity int) error {
	result, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock_quantity >= $1
	`, quantity, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}
	return nil
}
