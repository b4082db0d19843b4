package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type profilesRepository interface {
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type subscriptionsRepository interface {
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type objectStore interface {
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

type purgePublisher interface {
	PublishPurge(ctx context.Context, prefix string) error
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

type deletionMailer interface {
	SendAccountDeleted(ctx context.Context, email string) error
}

// Service exposes account lifecycle semantics.
type Service interface {
	Delete(ctx context.Context, userID uuid.UUID, accessID string) error
}

type service struct {
	users         usersRepository
	profiles      profilesRepository
	subscriptions subscriptionsRepository
	storage       objectStore
	bucket        string
	publisher     purgePublisher
	sessions      sessionRevoker
	mailer        deletionMailer
	logg          *logger.Logger
}

// ServiceParams bundles the account service dependencies.
type ServiceParams struct {
	Users         usersRepository
	Profiles      profilesRepository
	Subscriptions subscriptionsRepository
	Storage       objectStore
	Bucket        string
	Publisher     purgePublisher
	Sessions      sessionRevoker
	Mailer        deletionMailer
	Logger        *logger.Logger
}

// NewService constructs an account service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &service{
		users:         params.Users,
		profiles:      params.Profiles,
		subscriptions: params.Subscriptions,
		storage:       params.Storage,
		bucket:        params.Bucket,
		publisher:     params.Publisher,
		sessions:      params.Sessions,
		mailer:        params.Mailer,
		logg:          params.Logger,
	}, nil
}

// Delete removes the account rows and purges associated data. Row deletion is
// authoritative; storage, session, and email steps are best effort and a
// purge event backstops whatever the inline sweep missed.
func (s *service) Delete(ctx context.Context, userID uuid.UUID, accessID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	prefix := fmt.Sprintf("users/%s/", userID)
	if sweepErr := s.sweepStorage(ctx, prefix); sweepErr != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "prefix", prefix), "inline storage sweep incomplete")
	}

	if err := s.subscriptions.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}
	if err := s.profiles.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete profiles")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
	}

	if s.sessions != nil && accessID != "" {
		if err := s.sessions.Revoke(ctx, accessID); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "revoking session after account deletion failed")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPurge(ctx, prefix); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "publishing storage purge event failed")
		}
	}

	if s.mailer != nil {
		if err := s.mailer.SendAccountDeleted(ctx, user.Email); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "account deletion email failed")
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "account deleted")
	}
	return nil
}

func (s *service) sweepStorage(ctx context.Context, prefix string) error {
	keys, err := s.storage.ListPrefix(ctx, s.bucket, prefix)
	if err != nil {
		return err
	}
	var combined error
	for _, key := range keys {
		combined = multierr.Append(combined, s.storage.DeleteObject(ctx, s.bucket, key))
	}
	return combined
}
