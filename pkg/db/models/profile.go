package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is one of up to three per-user personas, each with its own wardrobe.
// Exactly one profile per user carries the active flag.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	DisplayName string    `gorm:"column:display_name;not null"`
	AvatarKey   *string   `gorm:"column:avatar_key"`
	Active      bool      `gorm:"column:active;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
