package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/dressing-intelligent/wardrobe-backend/pkg/auth"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/auth/session"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := r.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubProfilesLister struct {
	profiles []models.Profile
}

func (s *stubProfilesLister) ListByUser(context.Context, uuid.UUID) ([]models.Profile, error) {
	return s.profiles, nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", session.ErrInvalidRefreshToken
	}
	newID := session.NewAccessID()
	s.generated = append(s.generated, newID)
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "unit-test-secret",
		Issuer:                 "wardrobe-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type authFixture struct {
	users    *stubUserRepo
	profiles *stubProfilesLister
	sessions *stubSessionManager
	svc      Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    newStubUserRepo(),
		profiles: &stubProfilesLister{},
		sessions: &stubSessionManager{},
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       f.users,
		ProfilesRepo:   f.profiles,
		SessionManager: f.sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func TestRegisterIssuesTokens(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "Moi@Example.FR",
		Password: "mot-de-passe",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "moi@example.fr" {
		t.Fatalf("email not normalized: %s", resp.User.Email)
	}

	stored := f.users.byEmail["moi@example.fr"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "mot-de-passe" {
		t.Fatal("password stored in clear")
	}
	ok, err := security.VerifyPassword("mot-de-passe", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != stored.ID {
		t.Fatal("token carries wrong user")
	}
	if resp.RefreshToken != "refresh-"+claims.ID {
		t.Fatalf("refresh token not tied to jti: %s", resp.RefreshToken)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	req := RegisterRequest{Email: "moi@example.fr", Password: "mot-de-passe"}
	if _, err := f.svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := f.svc.Register(context.Background(), req)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "moi@example.fr", Password: "court"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginCarriesActiveProfile(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	if _, err := f.svc.Register(context.Background(), RegisterRequest{Email: "moi@example.fr", Password: "mot-de-passe"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	activeID := uuid.New()
	f.profiles.profiles = []models.Profile{
		{ID: uuid.New(), Active: false},
		{ID: activeID, Active: true},
	}

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "moi@example.fr", Password: "mot-de-passe"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ActiveProfileID == nil || *claims.ActiveProfileID != activeID {
		t.Fatalf("active profile not embedded: %v", claims.ActiveProfileID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	if _, err := f.svc.Register(context.Background(), RegisterRequest{Email: "moi@example.fr", Password: "mot-de-passe"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "moi@example.fr", Password: "faux"}},
		{"unknown email", LoginRequest{Email: "autre@example.fr", Password: "mot-de-passe"}},
		{"empty email", LoginRequest{Password: "mot-de-passe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tc.req)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	resp, err := f.svc.Register(context.Background(), RegisterRequest{Email: "moi@example.fr", Password: "mot-de-passe"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := f.svc.Refresh(context.Background(), resp.AccessToken, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == resp.AccessToken {
		t.Fatal("access token was not reissued")
	}
	if refreshed.RefreshToken == resp.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatal("identity changed across refresh")
	}
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	resp, err := f.svc.Register(context.Background(), RegisterRequest{Email: "moi@example.fr", Password: "mot-de-passe"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = f.svc.Refresh(context.Background(), resp.AccessToken, "refresh-stolen")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	if err := f.svc.Logout(context.Background(), "access-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(f.sessions.revoked) != 1 || f.sessions.revoked[0] != "access-1" {
		t.Fatalf("expected revoke call, got %v", f.sessions.revoked)
	}
}
