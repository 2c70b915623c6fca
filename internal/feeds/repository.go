package feeds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns nil, nil when the feed post is unknown. A post without a
// linked product has an empty ProductID.
func (r *Repository) Get(ctx context.Context, feedID string) (*domain.FeedPost, error) {
	post := &domain.FeedPost{}
	var productID sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, created_at
		FROM feed_posts
		WHERE id = $1
	`, feedID).Scan(&post.ID, &productID, &post.CreatedAt)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get feed post: %w", err)
	}

	post.ProductID = productID.String
	return post, nil
}
