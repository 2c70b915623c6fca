package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Get returns the entry for key, locking its row until the surrounding
// transaction ends. It returns nil, nil when no entry exists.
func (r *Repository) Get(ctx context.Context, q database.Querier, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{}
	var variant, orderID sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT buyer_id, feed_id, quantity, variant, external_order_id, created_at, updated_at
		FROM ledger_entries
		WHERE buyer_id = $1 AND feed_id = $2
		FOR UPDATE
	`, key.BuyerID, key.FeedID).Scan(
		&entry.BuyerID,
		&entry.FeedID,
		&entry.Quantity,
		&variant,
		&orderID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}

	entry.Variant = variant.String
	entry.ExternalOrderID = orderID.String
	return entry, nil
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, entry *domain.LedgerEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (buyer_id, feed_id, quantity, variant, external_order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.BuyerID, entry.FeedID, entry.Quantity, nullString(entry.Variant), nullString(entry.ExternalOrderID), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, q database.Querier, entry *domain.LedgerEntry) error {
	result, err := q.ExecContext(ctx, `
		UPDATE ledger_entries
		SET quantity = $3, variant = $4, updated_at = $5
		WHERE buyer_id = $1 AND feed_id = $2
	`, entry.BuyerID, entry.FeedID, entry.Quantity, nullString(entry.Variant), entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update ledger entry %s/%s: %w", entry.BuyerID, entry.FeedID, sql.ErrNoRows)
	}
	return nil
}

// ClaimComment records that commentID has been applied to key. It returns
// false when the comment was already claimed.
func (r *Repository) ClaimComment(ctx context.Context, q database.Querier, commentID string, key domain.LedgerKey) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO comment_receipts (comment_id, buyer_id, feed_id, processed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (comment_id) DO NOTHING
	`, commentID, key.BuyerID, key.FeedID)
	if err != nil {
		return false, fmt.Errorf("claim comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *Repository) ListByFeed(ctx context.Context, q database.Querier, feedID string) ([]domain.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT buyer_id, feed_id, quantity, variant, external_order_id, created_at, updated_at
		FROM ledger_entries
		WHERE feed_id = $1
		ORDER BY created_at
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var entry domain.LedgerEntry
		var variant, orderID sql.NullString
		if err := rows.Scan(&entry.BuyerID, &entry.FeedID, &entry.Quantity, &variant, &orderID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.Variant = variant.String
		entry.ExternalOrderID = orderID.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
