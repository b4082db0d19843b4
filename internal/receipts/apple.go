package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
)

// App Store statuses worth distinguishing; the rest are terminal failures.
const (
	appleStatusOK             = 0
	appleStatusSandboxReceipt = 21007
)

// AppleVerifier validates receipts against the App Store verifyReceipt endpoint.
type AppleVerifier struct {
	httpClient *http.Client
	cfg        config.AppleConfig
}

// NewAppleVerifier constructs an App Store receipt verifier.
func NewAppleVerifier(cfg config.AppleConfig) (*AppleVerifier, error) {
	if cfg.VerifyURL == "" || cfg.SandboxVerifyURL == "" {
		return nil, errors.New("apple verify urls are required")
	}
	return &AppleVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cfg:        cfg,
	}, nil
}

type appleResponse struct {
	Status            int    `json:"status"`
	Environment       string `json:"environment"`
	LatestReceiptInfo []struct {
		ProductID             string `json:"product_id"`
		TransactionID         string `json:"transaction_id"`
		OriginalTransactionID string `json:"original_transaction_id"`
		ExpiresDateMS         string `json:"expires_date_ms"`
		IsTrialPeriod         string `json:"is_trial_period"`
	} `json:"latest_receipt_info"`
	PendingRenewalInfo []struct {
		ProductID       string `json:"product_id"`
		AutoRenewStatus string `json:"auto_renew_status"`
	} `json:"pending_renewal_info"`
}

// Verify posts the receipt to production first and retries against sandbox
// when Apple reports a sandbox receipt (status 21007).
func (v *AppleVerifier) Verify(ctx context.Context, receipt, productID string) (*VerifiedReceipt, error) {
	resp, err := v.post(ctx, v.cfg.VerifyURL, receipt)
	if err != nil {
		return nil, err
	}
	if resp.Status == appleStatusSandboxReceipt {
		resp, err = v.post(ctx, v.cfg.SandboxVerifyURL, receipt)
		if err != nil {
			return nil, err
		}
	}
	if resp.Status != appleStatusOK {
		return nil, fmt.Errorf("app store rejected receipt with status %d", resp.Status)
	}

	// latest entry for the requested product wins
	var entry *VerifiedReceipt
	for _, info := range resp.LatestReceiptInfo {
		if productID != "" && info.ProductID != productID {
			continue
		}
		expiresAt := parseMillis(info.ExpiresDateMS)
		candidate := &VerifiedReceipt{
			TransactionID:         info.TransactionID,
			OriginalTransactionID: info.OriginalTransactionID,
			ProductID:             info.ProductID,
			Environment:           resp.Environment,
			ExpiresAt:             expiresAt,
		}
		if info.IsTrialPeriod == "true" {
			candidate.TrialEndsAt = expiresAt
		}
		if entry == nil || later(candidate.ExpiresAt, entry.ExpiresAt) {
			entry = candidate
		}
	}
	if entry == nil {
		return nil, errors.New("receipt contains no transaction for the product")
	}

	for _, renewal := range resp.PendingRenewalInfo {
		if renewal.ProductID == entry.ProductID {
			entry.AutoRenew = renewal.AutoRenewStatus == "1"
		}
	}
	return entry, nil
}

func (v *AppleVerifier) post(ctx context.Context, endpoint, receipt string) (*appleResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"receipt-data": receipt,
		"password":     v.cfg.SharedSecret,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifyReceipt returned %s", resp.Status)
	}

	var decoded appleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding verifyReceipt response: %w", err)
	}
	return &decoded, nil
}

func parseMillis(value string) *time.Time {
	if value == "" {
		return nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func later(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
