package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dressing-intelligent/wardrobe-backend/api/controllers"
	"github.com/dressing-intelligent/wardrobe-backend/internal/auth"
	"github.com/dressing-intelligent/wardrobe-backend/internal/ingestion"
	"github.com/dressing-intelligent/wardrobe-backend/internal/profiles"
	"github.com/dressing-intelligent/wardrobe-backend/internal/receipts"
	"github.com/dressing-intelligent/wardrobe-backend/internal/wardrobe"
	pkgauth "github.com/dressing-intelligent/wardrobe-backend/pkg/auth"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/auth/session"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessionChecker struct{ active bool }

func (s stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return s.active, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubProfilesService struct {
	list func(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
}

func (s stubProfilesService) Create(ctx context.Context, userID uuid.UUID, input profiles.CreateInput) (*models.Profile, error) {
	panic("unimplemented")
}

func (s stubProfilesService) List(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	if s.list != nil {
		return s.list(ctx, userID)
	}
	return []models.Profile{}, nil
}

func (s stubProfilesService) Update(ctx context.Context, userID, profileID uuid.UUID, input profiles.UpdateInput) (*models.Profile, error) {
	panic("unimplemented")
}

func (s stubProfilesService) Delete(ctx context.Context, userID, profileID uuid.UUID) error {
	panic("unimplemented")
}

func (s stubProfilesService) Activate(ctx context.Context, userID, profileID uuid.UUID) error {
	panic("unimplemented")
}

type stubIngestionService struct{}

func (stubIngestionService) Process(ctx context.Context, userID uuid.UUID, input ingestion.ProcessInput) (*ingestion.ProcessingResult, error) {
	panic("unimplemented")
}

type stubWardrobeService struct{}

func (stubWardrobeService) Save(ctx context.Context, userID uuid.UUID, input wardrobe.SaveInput) (*wardrobe.Item, error) {
	panic("unimplemented")
}

func (stubWardrobeService) List(ctx context.Context, userID, profileID uuid.UUID) ([]wardrobe.Item, error) {
	panic("unimplemented")
}

func (stubWardrobeService) Update(ctx context.Context, userID, itemID uuid.UUID, input wardrobe.UpdateInput) (*wardrobe.Item, error) {
	panic("unimplemented")
}

func (stubWardrobeService) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	panic("unimplemented")
}

type stubReceiptsService struct{}

func (stubReceiptsService) Validate(ctx context.Context, userID uuid.UUID, input receipts.ValidateInput) (*models.Subscription, error) {
	panic("unimplemented")
}

func (stubReceiptsService) Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

type stubAccountService struct{}

func (stubAccountService) Delete(ctx context.Context, userID uuid.UUID, accessID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, checker session.AccessSessionChecker, pingers ...controllers.NamedPinger) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Dependencies{
		Config:           cfg,
		Logger:           logg,
		SessionChecker:   checker,
		MetricsGatherer:  prometheus.NewRegistry(),
		Pingers:          pingers,
		AuthService:      stubAuthService{},
		ProfilesService:  stubProfilesService{},
		IngestionService: stubIngestionService{},
		WardrobeService:  stubWardrobeService{},
		ReceiptsService:  stubReceiptsService{},
		AccountService:   stubAccountService{},
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if env := resp.Header().Get("X-Dressing-Env"); env != "test" {
		t.Fatalf("expected env header, got %q", env)
	}
}

func TestHealthReadyReportsFailures(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessionChecker{active: true},
		controllers.NamedPinger{Name: "database", Pinger: stubPinger{}},
		controllers.NamedPinger{Name: "redis", Pinger: stubPinger{err: fmt.Errorf("down")}},
	)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a dependency is down got %d", resp.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsRevokedSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessionChecker{active: false})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for profiles list got %d", resp.Code)
	}
}

func TestSubscriptionsCurrentDefaultsToNone(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for current subscription got %d", resp.Code)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if body.Data.(map[string]any)["status"] != "none" {
		t.Fatalf("expected status none without a subscription, got %v", body.Data)
	}
}

func TestAccountDeleteRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessionChecker{active: true})

	anonymous := httptest.NewRequest(http.MethodDelete, "/api/v1/account", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anonymous)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodDelete, "/api/v1/account", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for account deletion got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessionChecker{active: true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	profileID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:          userID,
		ActiveProfileID: &profileID,
		JTI:             session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
