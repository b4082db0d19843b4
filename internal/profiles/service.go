package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

const maxProfilesPerUser = 3

type profilesRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, userID, profileID uuid.UUID) error
}

type purgePublisher interface {
	PublishPurge(ctx context.Context, prefix string) error
}

// Service exposes profile lifecycle semantics.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Profile, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
	Update(ctx context.Context, userID, profileID uuid.UUID, input UpdateInput) (*models.Profile, error)
	Delete(ctx context.Context, userID, profileID uuid.UUID) error
	Activate(ctx context.Context, userID, profileID uuid.UUID) error
}

type service struct {
	repo      profilesRepository
	publisher purgePublisher
	logg      *logger.Logger
}

// NewService constructs a profile service.
func NewService(repo profilesRepository, publisher purgePublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{repo: repo, publisher: publisher, logg: logg}, nil
}

// CreateInput models the payload required to create a profile.
type CreateInput struct {
	DisplayName string
	AvatarKey   *string
}

// UpdateInput carries the mutable profile fields; nil means unchanged.
type UpdateInput struct {
	DisplayName *string
	AvatarKey   *string
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_name is required")
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count profiles")
	}
	if count >= maxProfilesPerUser {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "profile limit reached")
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: name,
		AvatarKey:   input.AvatarKey,
		// first profile becomes active immediately
		Active: count == 0,
	}
	created, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list profiles")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, profileID uuid.UUID, input UpdateInput) (*models.Profile, error) {
	profile, err := s.owned(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_name cannot be empty")
		}
		profile.DisplayName = name
	}
	if input.AvatarKey != nil {
		profile.AvatarKey = input.AvatarKey
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return profile, nil
}

func (s *service) Delete(ctx context.Context, userID, profileID uuid.UUID) error {
	profile, err := s.owned(ctx, userID, profileID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, profile.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete profile")
	}

	if s.publisher != nil {
		prefix := fmt.Sprintf("users/%s/profiles/%s/", userID, profileID)
		if err := s.publisher.PublishPurge(ctx, prefix); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "publishing storage purge event failed")
		}
	}
	return nil
}

func (s *service) Activate(ctx context.Context, userID, profileID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, profileID); err != nil {
		return err
	}
	if err := s.repo.Activate(ctx, userID, profileID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate profile")
	}
	return nil
}

func (s *service) owned(ctx context.Context, userID, profileID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}

	profile, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile.UserID != userID {
		// ownership mismatch presents as not-found to avoid enumeration
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return profile, nil
}
