package wardrobe

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
)

// Repository exposes clothing item persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a clothing item repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a clothing item record.
func (r *Repository) Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindByID retrieves a clothing item by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ClothingItem, error) {
	var item models.ClothingItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByProfile returns the profile's items, newest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ClothingItem, error) {
	var out []models.ClothingItem
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable fields of a clothing item.
func (r *Repository) Update(ctx context.Context, item *models.ClothingItem) error {
	return r.db.WithContext(ctx).
		Model(&models.ClothingItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"category": item.Category,
			"color":    item.Color,
		}).Error
}

// Delete removes a clothing item row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClothingItem{}).Error
}
