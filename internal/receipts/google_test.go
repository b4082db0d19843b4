package receipts

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
)

func testCredentials(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	creds, err := json.Marshal(map[string]string{
		"client_email": "svc@test.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
		"token_uri":    "https://example.invalid/token",
	})
	if err != nil {
		t.Fatalf("marshal creds: %v", err)
	}
	return string(creds)
}

func TestGoogleVerifySignsAssertionAndReadsPurchase(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	expiry := time.Now().Add(30 * 24 * time.Hour)
	var tokenCalls, purchaseCalls int

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
			t.Fatalf("unexpected grant type %q", got)
		}
		assertion := r.PostFormValue("assertion")
		parsed, err := jwt.Parse(assertion, func(tok *jwt.Token) (any, error) {
			if tok.Method.Alg() != jwt.SigningMethodRS256.Alg() {
				t.Fatalf("unexpected algorithm %s", tok.Method.Alg())
			}
			return &key.PublicKey, nil
		})
		if err != nil || !parsed.Valid {
			t.Fatalf("assertion did not verify: %v", err)
		}
		claims := parsed.Claims.(jwt.MapClaims)
		if claims["iss"] != "svc@test.iam.gserviceaccount.com" {
			t.Fatalf("unexpected issuer %v", claims["iss"])
		}
		if claims["scope"] != androidPublisherScope {
			t.Fatalf("unexpected scope %v", claims["scope"])
		}
		if claims["aud"] != srv.URL+"/token" {
			t.Fatalf("unexpected audience %v", claims["aud"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.test",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/androidpublisher/v3/applications/com.dressing.app/purchases/subscriptions/premium_monthly/tokens/purchase-token", func(w http.ResponseWriter, r *http.Request) {
		purchaseCalls++
		if got := r.Header.Get("Authorization"); got != "Bearer ya29.test" {
			t.Fatalf("unexpected authorization %q", got)
		}
		trial := 2
		_ = json.NewEncoder(w).Encode(map[string]any{
			"orderId":          "GPA.1234-5678-9012..3",
			"expiryTimeMillis": unixMillis(expiry),
			"autoRenewing":     true,
			"paymentState":     trial,
		})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	v, err := NewGoogleVerifier(config.GoogleConfig{
		PackageName:     "com.dressing.app",
		CredentialsJSON: testCredentials(t, key),
		TokenURL:        srv.URL + "/token",
		PublisherURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	verified, err := v.Verify(context.Background(), "purchase-token", "premium_monthly")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.TransactionID != "GPA.1234-5678-9012..3" {
		t.Fatalf("unexpected transaction id %s", verified.TransactionID)
	}
	if verified.OriginalTransactionID != "GPA.1234-5678-9012" {
		t.Fatalf("renewal suffix not stripped: %s", verified.OriginalTransactionID)
	}
	if !verified.AutoRenew {
		t.Fatal("auto renew not parsed")
	}
	if verified.TrialEndsAt == nil {
		t.Fatal("trial payment state not reflected")
	}
	if verified.ExpiresAt == nil || verified.ExpiresAt.Unix() != expiry.Unix() {
		t.Fatalf("expiry mismatch: %+v", verified.ExpiresAt)
	}

	// second call reuses the cached token
	if _, err := v.Verify(context.Background(), "purchase-token", "premium_monthly"); err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected cached token, got %d token calls", tokenCalls)
	}
	if purchaseCalls != 2 {
		t.Fatalf("expected 2 purchase calls, got %d", purchaseCalls)
	}
}

func TestNewGoogleVerifierRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  config.GoogleConfig
	}{
		{"missing package", config.GoogleConfig{CredentialsJSON: "{}"}},
		{"missing credentials", config.GoogleConfig{PackageName: "com.dressing.app"}},
		{"malformed json", config.GoogleConfig{PackageName: "com.dressing.app", CredentialsJSON: "{"}},
		{"empty fields", config.GoogleConfig{PackageName: "com.dressing.app", CredentialsJSON: `{"client_email":"","private_key":""}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewGoogleVerifier(tc.cfg); err == nil {
				t.Fatal("expected constructor error")
			}
		})
	}
}

func TestBaseOrderID(t *testing.T) {
	t.Parallel()

	if got := baseOrderID("GPA.0000-1111..5"); got != "GPA.0000-1111" {
		t.Fatalf("got %s", got)
	}
	if got := baseOrderID("GPA.0000-1111"); got != "GPA.0000-1111" {
		t.Fatalf("got %s", got)
	}
	if !strings.HasPrefix(baseOrderID("GPA.1.2"), "GPA.") {
		t.Fatal("single-dot order ids must pass through")
	}
}
