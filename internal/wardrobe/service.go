package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type itemsRepository interface {
	Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ClothingItem, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ClothingItem, error)
	Update(ctx context.Context, item *models.ClothingItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type storageClient interface {
	UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error
	DeleteObject(ctx context.Context, bucket, object string) error
	SignedReadURL(bucket, object string, ttl time.Duration) (string, error)
}

type assetFetcher interface {
	Fetch(ctx context.Context, assetURL string) ([]byte, string, error)
}

type listCache interface {
	Del(ctx context.Context, keys ...string) error
	WardrobeListKey(profileID string) string
}

// SaveInput carries the processed image references and chosen attributes.
type SaveInput struct {
	ProfileID    uuid.UUID
	Category     enums.Category
	Color        enums.Color
	OriginalURL  string
	ProcessedURL *string
	PublicID     string
}

// Item is a clothing row decorated with time-limited read URLs.
type Item struct {
	models.ClothingItem
	OriginalURL  string  `json:"original_url"`
	ProcessedURL *string `json:"processed_url,omitempty"`
}

// UpdateInput carries the mutable item fields; nil means unchanged.
type UpdateInput struct {
	Category *enums.Category
	Color    *enums.Color
}

// Service exposes wardrobe item semantics.
type Service interface {
	Save(ctx context.Context, userID uuid.UUID, input SaveInput) (*Item, error)
	List(ctx context.Context, userID, profileID uuid.UUID) ([]Item, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateInput) (*Item, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) error
}

type service struct {
	profiles  profilesRepository
	items     itemsRepository
	storage   storageClient
	fetcher   assetFetcher
	cache     listCache
	bucket    string
	signedTTL time.Duration
	logg      *logger.Logger
}

// NewService constructs a wardrobe service.
func NewService(
	profiles profilesRepository,
	items itemsRepository,
	storage storageClient,
	fetcher assetFetcher,
	cache listCache,
	bucket string,
	signedTTL time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if storage == nil {
		return nil, fmt.Errorf("storage client required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("asset fetcher required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket required")
	}
	if signedTTL <= 0 {
		return nil, fmt.Errorf("signed url ttl must be positive")
	}
	return &service{
		profiles:  profiles,
		items:     items,
		storage:   storage,
		fetcher:   fetcher,
		cache:     cache,
		bucket:    bucket,
		signedTTL: signedTTL,
		logg:      logg,
	}, nil
}

func (s *service) Save(ctx context.Context, userID uuid.UUID, input SaveInput) (*Item, error) {
	if _, err := s.ownedProfile(ctx, userID, input.ProfileID); err != nil {
		return nil, err
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if !input.Color.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid color")
	}
	if strings.TrimSpace(input.OriginalURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original_url is required")
	}

	itemID := uuid.New()
	basePath := fmt.Sprintf("users/%s/profiles/%s/clothes/%s", userID, input.ProfileID, itemID)
	originalKey := basePath + "/original"
	processedKey := basePath + "/processed"

	// processed identical to original means the CDN fell back; one upload only.
	processedDistinct := input.ProcessedURL != nil &&
		strings.TrimSpace(*input.ProcessedURL) != "" &&
		*input.ProcessedURL != input.OriginalURL

	var (
		wg           sync.WaitGroup
		originalErr  error
		processedErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		originalErr = s.rehome(ctx, input.OriginalURL, originalKey)
	}()

	if processedDistinct {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processedErr = s.rehome(ctx, *input.ProcessedURL, processedKey)
		}()
	}
	wg.Wait()

	if originalErr != nil {
		if processedDistinct && processedErr == nil {
			if err := s.storage.DeleteObject(ctx, s.bucket, processedKey); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "orphaned processed object cleanup failed")
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, originalErr, "storing original image")
	}

	var storedProcessedKey *string
	switch {
	case !processedDistinct && input.ProcessedURL != nil && *input.ProcessedURL == input.OriginalURL:
		key := originalKey
		storedProcessedKey = &key
	case processedDistinct && processedErr != nil:
		// non-fatal: item keeps the original only
		if s.logg != nil {
			s.logg.Warn(ctx, "processed variant upload failed, keeping original only")
		}
	case processedDistinct:
		key := processedKey
		storedProcessedKey = &key
	}

	item := &models.ClothingItem{
		ID:           itemID,
		ProfileID:    input.ProfileID,
		Category:     input.Category,
		Color:        input.Color,
		OriginalKey:  originalKey,
		ProcessedKey: storedProcessedKey,
	}
	created, err := s.items.Create(ctx, item)
	if err != nil {
		// compensate: the just-uploaded objects must not be orphaned
		cleanup := s.storage.DeleteObject(ctx, s.bucket, originalKey)
		if storedProcessedKey != nil && *storedProcessedKey != originalKey {
			cleanup = multierr.Append(cleanup, s.storage.DeleteObject(ctx, s.bucket, *storedProcessedKey))
		}
		if cleanup != nil && s.logg != nil {
			s.logg.Error(ctx, "storage rollback after insert failure", cleanup)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist clothing item")
	}

	s.invalidateList(ctx, input.ProfileID)
	return s.decorate(created)
}

func (s *service) List(ctx context.Context, userID, profileID uuid.UUID) ([]Item, error) {
	if _, err := s.ownedProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}

	rows, err := s.items.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clothing items")
	}

	out := make([]Item, 0, len(rows))
	for i := range rows {
		item, err := s.decorate(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateInput) (*Item, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		item.Category = *input.Category
	}
	if input.Color != nil {
		if !input.Color.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid color")
		}
		item.Color = *input.Color
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update clothing item")
	}

	s.invalidateList(ctx, item.ProfileID)
	return s.decorate(item)
}

func (s *service) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	// row first; storage objects are best effort afterwards
	if err := s.items.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete clothing item")
	}

	var cleanup error
	cleanup = multierr.Append(cleanup, s.storage.DeleteObject(ctx, s.bucket, item.OriginalKey))
	if item.ProcessedKey != nil && *item.ProcessedKey != item.OriginalKey {
		cleanup = multierr.Append(cleanup, s.storage.DeleteObject(ctx, s.bucket, *item.ProcessedKey))
	}
	if cleanup != nil && s.logg != nil {
		s.logg.Warn(ctx, "clothing item storage cleanup incomplete")
	}

	s.invalidateList(ctx, item.ProfileID)
	return nil
}

func (s *service) rehome(ctx context.Context, assetURL, key string) error {
	data, contentType, err := s.fetcher.Fetch(ctx, assetURL)
	if err != nil {
		return fmt.Errorf("fetching asset: %w", err)
	}
	if err := s.storage.UploadObject(ctx, s.bucket, key, contentType, data); err != nil {
		return fmt.Errorf("uploading asset: %w", err)
	}
	return nil
}

func (s *service) decorate(item *models.ClothingItem) (*Item, error) {
	// a row with a value outside the enum is corrupt, never coerced
	if !item.Category.IsValid() || !item.Color.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clothing item has invalid attributes")
	}

	originalURL, err := s.storage.SignedReadURL(s.bucket, item.OriginalKey, s.signedTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "signing original url")
	}
	out := &Item{ClothingItem: *item, OriginalURL: originalURL}

	if item.ProcessedKey != nil {
		processedURL, err := s.storage.SignedReadURL(s.bucket, *item.ProcessedKey, s.signedTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "signing processed url")
		}
		out.ProcessedURL = &processedURL
	}
	return out, nil
}

func (s *service) invalidateList(ctx context.Context, profileID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.WardrobeListKey(profileID.String())); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "invalidating wardrobe list cache failed")
	}
}

func (s *service) ownedProfile(ctx context.Context, userID, profileID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return profile, nil
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.ClothingItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "clothing item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load clothing item")
	}
	if _, err := s.ownedProfile(ctx, userID, item.ProfileID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "clothing item not found")
	}
	return item, nil
}
