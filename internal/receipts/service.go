package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type verifier interface {
	Verify(ctx context.Context, receipt, productID string) (*VerifiedReceipt, error)
}

type subscriptionsRepository interface {
	Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// ValidateInput carries one store receipt to verify.
type ValidateInput struct {
	Receipt   string
	Platform  enums.Platform
	ProductID string
}

// Service exposes receipt validation semantics.
type Service interface {
	Validate(ctx context.Context, userID uuid.UUID, input ValidateInput) (*models.Subscription, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type service struct {
	repo   subscriptionsRepository
	apple  verifier
	google verifier
	now    func() time.Time
	logg   *logger.Logger
}

// NewService constructs a receipt validation service.
func NewService(repo subscriptionsRepository, apple, google verifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if apple == nil || google == nil {
		return nil, fmt.Errorf("platform verifiers required")
	}
	return &service{
		repo:   repo,
		apple:  apple,
		google: google,
		now:    time.Now,
		logg:   logg,
	}, nil
}

func (s *service) Validate(ctx context.Context, userID uuid.UUID, input ValidateInput) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if strings.TrimSpace(input.Receipt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt is required")
	}
	if !input.Platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform")
	}
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	var target verifier
	switch input.Platform {
	case enums.PlatformIOS:
		target = s.apple
	case enums.PlatformAndroid:
		target = s.google
	}

	verified, err := target.Verify(ctx, input.Receipt, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification")
	}

	sub := &models.Subscription{
		UserID:                userID,
		Status:                deriveStatus(s.now(), verified),
		ProductID:             verified.ProductID,
		Platform:              input.Platform,
		TransactionID:         verified.TransactionID,
		OriginalTransactionID: verified.OriginalTransactionID,
		Environment:           verified.Environment,
		TrialEndsAt:           verified.TrialEndsAt,
		ExpiresAt:             verified.ExpiresAt,
		AutoRenew:             verified.AutoRenew,
	}

	stored, err := s.repo.Upsert(ctx, sub)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}
	return stored, nil
}

func (s *service) Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	sub, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Subscription{UserID: userID, Status: enums.SubscriptionStatusNone}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}

// deriveStatus computes the entitlement from receipt fields; the client's
// claimed status is never trusted.
func deriveStatus(now time.Time, verified *VerifiedReceipt) enums.SubscriptionStatus {
	expired := verified.ExpiresAt == nil || !verified.ExpiresAt.After(now)

	if expired {
		if !verified.AutoRenew {
			return enums.SubscriptionStatusCancelled
		}
		return enums.SubscriptionStatusExpired
	}
	if verified.TrialEndsAt != nil && verified.TrialEndsAt.After(now) {
		return enums.SubscriptionStatusTrial
	}
	return enums.SubscriptionStatusActive
}
