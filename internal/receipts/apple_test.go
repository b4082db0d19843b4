package receipts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
)

func appleOKBody(expiry time.Time, trial bool) map[string]any {
	trialFlag := "false"
	if trial {
		trialFlag = "true"
	}
	return map[string]any{
		"status":      0,
		"environment": "Production",
		"latest_receipt_info": []map[string]any{
			{
				"product_id":              "premium_monthly",
				"transaction_id":          "tx-100",
				"original_transaction_id": "tx-1",
				"expires_date_ms":         unixMillis(expiry),
				"is_trial_period":         trialFlag,
			},
		},
		"pending_renewal_info": []map[string]any{
			{"product_id": "premium_monthly", "auto_renew_status": "1"},
		},
	}
}

func unixMillis(t time.Time) string {
	return jsonNumber(t.UnixMilli())
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestAppleVerifyProduction(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(24 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["receipt-data"] != "receipt-blob" {
			t.Fatalf("unexpected receipt %q", body["receipt-data"])
		}
		if body["password"] != "shared" {
			t.Fatalf("shared secret missing")
		}
		_ = json.NewEncoder(w).Encode(appleOKBody(expiry, false))
	}))
	defer srv.Close()

	v, err := NewAppleVerifier(config.AppleConfig{
		VerifyURL:        srv.URL,
		SandboxVerifyURL: srv.URL + "/sandbox",
		SharedSecret:     "shared",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	verified, err := v.Verify(context.Background(), "receipt-blob", "premium_monthly")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.TransactionID != "tx-100" || verified.OriginalTransactionID != "tx-1" {
		t.Fatalf("unexpected ids %+v", verified)
	}
	if !verified.AutoRenew {
		t.Fatal("auto renew not parsed")
	}
	if verified.ExpiresAt == nil || verified.ExpiresAt.Unix() != expiry.Unix() {
		t.Fatalf("expiry mismatch: %+v", verified.ExpiresAt)
	}
}

func TestAppleVerifyRetriesSandboxOn21007(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(time.Hour)
	var prodCalls, sandboxCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/prod", func(w http.ResponseWriter, r *http.Request) {
		prodCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 21007})
	})
	mux.HandleFunc("/sandbox", func(w http.ResponseWriter, r *http.Request) {
		sandboxCalls++
		body := appleOKBody(expiry, true)
		body["environment"] = "Sandbox"
		_ = json.NewEncoder(w).Encode(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v, err := NewAppleVerifier(config.AppleConfig{
		VerifyURL:        srv.URL + "/prod",
		SandboxVerifyURL: srv.URL + "/sandbox",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	verified, err := v.Verify(context.Background(), "receipt-blob", "premium_monthly")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if prodCalls != 1 || sandboxCalls != 1 {
		t.Fatalf("expected prod then sandbox, got %d/%d", prodCalls, sandboxCalls)
	}
	if verified.Environment != "Sandbox" {
		t.Fatalf("unexpected environment %s", verified.Environment)
	}
	if verified.TrialEndsAt == nil {
		t.Fatal("trial window not parsed")
	}
}

func TestAppleVerifyRejectsBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 21003})
	}))
	defer srv.Close()

	v, err := NewAppleVerifier(config.AppleConfig{
		VerifyURL:        srv.URL,
		SandboxVerifyURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.Verify(context.Background(), "receipt-blob", "premium_monthly"); err == nil {
		t.Fatal("expected error for rejected receipt")
	}
}
