package receipts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
)

// Repository exposes subscription persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscription repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the subscription keyed by user; replaying the same
// transaction id leaves an identical row behind.
func (r *Repository) Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"product_id",
				"platform",
				"transaction_id",
				"original_transaction_id",
				"environment",
				"trial_ends_at",
				"expires_at",
				"auto_renew",
				"updated_at",
			}),
		}).
		Create(sub).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, sub.UserID)
}

// FindByUser retrieves the user's subscription row.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteByUser removes the user's subscription row.
func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Subscription{}).Error
}
