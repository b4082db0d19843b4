package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
)

// ClothingItem is a catalogued garment. OriginalKey always references the
// stored source photo; ProcessedKey is the background-removed variant and is
// nil when processing fell back to the original.
type ClothingItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID    uuid.UUID      `gorm:"column:profile_id;type:uuid;not null;index"`
	Category     enums.Category `gorm:"column:category;type:clothing_category;not null"`
	Color        enums.Color    `gorm:"column:color;type:clothing_color;not null"`
	OriginalKey  string         `gorm:"column:original_key;not null"`
	ProcessedKey *string        `gorm:"column:processed_key"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
