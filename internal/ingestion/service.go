package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/internal/cdn"
	"github.com/dressing-intelligent/wardrobe-backend/internal/tagging"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/metrics"
)

const (
	stageCDNUpload = "cdn_upload"
	rateScope      = "ingest"
)

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type cdnUploader interface {
	Upload(ctx context.Context, input cdn.UploadInput) (*cdn.UploadResult, error)
}

type coordinationStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	IdempotencyKey(scope, id string) string
}

// ProcessInput is the payload of one image processing request.
type ProcessInput struct {
	ImageBase64    string
	ProfileID      string
	MimeType       string
	IdempotencyKey string
}

// ProcessingResult is the transient pipeline outcome. It is cached in redis
// under the idempotency key, never persisted in the database.
type ProcessingResult struct {
	OriginalURL        string          `json:"original_url"`
	ProcessedURL       *string         `json:"processed_url"`
	PublicID           string          `json:"public_id"`
	SuggestedCategory  *enums.Category `json:"suggested_category,omitempty"`
	CategoryConfidence *int            `json:"category_confidence,omitempty"`
	UsedFallback       bool            `json:"used_fallback"`
}

// Service runs the image ingestion pipeline.
type Service interface {
	Process(ctx context.Context, userID uuid.UUID, input ProcessInput) (*ProcessingResult, error)
}

type service struct {
	profiles profilesRepository
	uploader cdnUploader
	store    coordinationStore
	metrics  *metrics.IngestMetrics
	cfg      config.IngestConfig
	logg     *logger.Logger
}

// NewService constructs an ingestion service.
func NewService(
	profiles profilesRepository,
	uploader cdnUploader,
	store coordinationStore,
	ingestMetrics *metrics.IngestMetrics,
	cfg config.IngestConfig,
	logg *logger.Logger,
) (Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("cdn uploader required")
	}
	if store == nil {
		return nil, fmt.Errorf("coordination store required")
	}
	return &service{
		profiles: profiles,
		uploader: uploader,
		store:    store,
		metrics:  ingestMetrics,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

func (s *service) Process(ctx context.Context, userID uuid.UUID, input ProcessInput) (*ProcessingResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	profileID, err := uuid.Parse(strings.TrimSpace(input.ProfileID))
	if err != nil || profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile_id must be a valid uuid")
	}

	payload := strings.TrimSpace(input.ImageBase64)
	if payload == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image_base64 is required")
	}
	if int64(len(payload)) > s.cfg.MaxBase64Bytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image payload exceeds size limit")
	}

	mimeType := strings.ToLower(strings.TrimSpace(input.MimeType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if !s.mimeAllowed(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed")
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

	allowed, _, err := s.store.FixedWindowAllow(
		ctx,
		rateScope+":"+profileID.String(),
		int64(s.cfg.RateLimitPerMin),
		s.cfg.RateLimitWindow,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many processing requests")
	}

	idemKey := ""
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		idemKey = s.store.IdempotencyKey(rateScope, userID.String()+":"+key)
		if cached, err := s.store.Get(ctx, idemKey); err == nil {
			var result ProcessingResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return &result, nil
			}
			if s.logg != nil {
				s.logg.Warn(ctx, "discarding unreadable cached processing result")
			}
		} else if !errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup")
		}
	}

	dataURI := payload
	if !strings.HasPrefix(dataURI, "data:") {
		dataURI = fmt.Sprintf("data:%s;base64,%s", mimeType, payload)
	}

	started := time.Now()
	uploaded, err := s.uploader.Upload(ctx, cdn.UploadInput{DataURI: dataURI})
	s.metrics.ObserveDuration(stageCDNUpload, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(stageCDNUpload)
		if errors.Is(err, cdn.ErrTimeout) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "cdn upload timed out")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cdn upload")
	}
	s.metrics.IncSuccess(stageCDNUpload)
	if uploaded.UsedFallback {
		s.metrics.IncFallback()
	}

	result := &ProcessingResult{
		OriginalURL:  uploaded.OriginalURL,
		ProcessedURL: uploaded.ProcessedURL,
		PublicID:     uploaded.PublicID,
		UsedFallback: uploaded.UsedFallback,
	}

	if suggestion := tagging.MapToCategory(toTaggingTags(uploaded.Tags)); suggestion != nil {
		category := suggestion.Category
		confidence := suggestion.Confidence
		result.SuggestedCategory = &category
		result.CategoryConfidence = &confidence
	}

	if idemKey != "" {
		encoded, err := json.Marshal(result)
		if err == nil {
			if _, err := s.store.SetNX(ctx, idemKey, string(encoded), s.cfg.IdempotencyTTL); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "caching processing result failed")
			}
		}
	}

	return result, nil
}

func (s *service) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.cfg.AllowedMimeTypes {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

func toTaggingTags(tags []cdn.Tag) []tagging.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]tagging.Tag, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagging.Tag{Name: tag.Name, Confidence: tag.Confidence})
	}
	return out
}
