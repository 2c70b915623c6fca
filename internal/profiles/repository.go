package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

// Repository reads buyer and seller profiles. Profiles are owned by the
// account service; this side never writes them.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var phone, address, shipping, messagingID sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, phone, address, shipping_method, messaging_id
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&profile.UserID, &profile.DisplayName, &phone, &address, &shipping, &messagingID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile.Phone = phone.String
	profile.Address = address.String
	profile.Shipping = domain.ShippingMethod(shipping.String)
	profile.MessagingID = messagingID.String
	return profile, nil
}
