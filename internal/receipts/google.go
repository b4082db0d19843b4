package receipts

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
)

const androidPublisherScope = "https://www.googleapis.com/auth/androidpublisher"

// GoogleVerifier validates Play subscription purchases through the
// androidpublisher API, authenticating with a genuine RS256 service-account
// assertion.
type GoogleVerifier struct {
	httpClient  *http.Client
	cfg         config.GoogleConfig
	clientEmail string
	privateKey  *rsa.PrivateKey

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewGoogleVerifier parses the service-account credentials and constructs a verifier.
func NewGoogleVerifier(cfg config.GoogleConfig) (*GoogleVerifier, error) {
	if cfg.PackageName == "" {
		return nil, errors.New("google package name is required")
	}
	if cfg.CredentialsJSON == "" {
		return nil, errors.New("google service account credentials are required")
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal([]byte(cfg.CredentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = creds.TokenURI
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("google token url is required")
	}

	key, err := parseRSAPrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &GoogleVerifier{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		cfg:         cfg,
		clientEmail: creds.ClientEmail,
		privateKey:  key,
	}, nil
}

type googlePurchase struct {
	StartTimeMillis  string `json:"startTimeMillis"`
	ExpiryTimeMillis string `json:"expiryTimeMillis"`
	AutoRenewing     bool   `json:"autoRenewing"`
	OrderID          string `json:"orderId"`
	PaymentState     *int   `json:"paymentState"`
	PurchaseType     *int   `json:"purchaseType"`
}

// Verify exchanges a signed assertion for an access token, then reads the
// subscription purchase state. The purchase token is the receipt.
func (v *GoogleVerifier) Verify(ctx context.Context, receipt, productID string) (*VerifiedReceipt, error) {
	token, err := v.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"%s/androidpublisher/v3/applications/%s/purchases/subscriptions/%s/tokens/%s",
		strings.TrimRight(v.cfg.PublisherURL, "/"),
		url.PathEscape(v.cfg.PackageName),
		url.PathEscape(productID),
		url.PathEscape(receipt),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("androidpublisher returned %s", resp.Status)
	}

	var purchase googlePurchase
	if err := json.NewDecoder(resp.Body).Decode(&purchase); err != nil {
		return nil, fmt.Errorf("decoding purchase response: %w", err)
	}
	if purchase.OrderID == "" {
		return nil, errors.New("purchase response missing order id")
	}

	result := &VerifiedReceipt{
		TransactionID:         purchase.OrderID,
		OriginalTransactionID: baseOrderID(purchase.OrderID),
		ProductID:             productID,
		Environment:           "production",
		AutoRenew:             purchase.AutoRenewing,
		ExpiresAt:             parseMillis(purchase.ExpiryTimeMillis),
	}
	if purchase.PurchaseType != nil && *purchase.PurchaseType == 0 {
		result.Environment = "sandbox"
	}
	// paymentState 2 marks a free trial
	if purchase.PaymentState != nil && *purchase.PaymentState == 2 {
		result.TrialEndsAt = result.ExpiresAt
	}
	return result, nil
}

func (v *GoogleVerifier) token(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.accessToken != "" && time.Until(v.tokenExpiry) > time.Minute {
		return v.accessToken, nil
	}

	assertion, err := v.signAssertion(time.Now())
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("token response missing access token")
	}

	v.accessToken = tokenResp.AccessToken
	v.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return v.accessToken, nil
}

// signAssertion builds the RS256 service-account JWT the token endpoint expects.
func (v *GoogleVerifier) signAssertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   v.clientEmail,
		"scope": androidPublisherScope,
		"aud":   v.cfg.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(v.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing service account assertion: %w", err)
	}
	return signed, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
		return nil, errors.New("unsupported private key type")
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}

// baseOrderID strips the renewal suffix Play appends to recurring orders
// (GPA.XXXX-....-..0 style), so renewals share an original transaction id.
func baseOrderID(orderID string) string {
	if idx := strings.LastIndex(orderID, ".."); idx > 0 {
		return orderID[:idx]
	}
	return orderID
}
