package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
)

// Subscription persists the verified store entitlement for a user. Rows are
// written exclusively by the receipt validator; the status is derived from
// receipt expiry and trial fields, never taken from the client.
type Subscription struct {
	ID                    uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID                `gorm:"column:user_id;type:uuid;not null;unique"`
	Status                enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'none'"`
	ProductID             string                   `gorm:"column:product_id;not null"`
	Platform              enums.Platform           `gorm:"column:platform;type:purchase_platform;not null"`
	TransactionID         string                   `gorm:"column:transaction_id;not null;unique"`
	OriginalTransactionID string                   `gorm:"column:original_transaction_id;index"`
	Environment           string                   `gorm:"column:environment"`
	TrialEndsAt           *time.Time               `gorm:"column:trial_ends_at"`
	ExpiresAt             *time.Time               `gorm:"column:expires_at"`
	AutoRenew             bool                     `gorm:"column:auto_renew;not null;default:false"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
