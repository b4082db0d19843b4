package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dressing-intelligent/wardrobe-backend/api/validators"
)

func TestProcessImageRequestOptionalFields(t *testing.T) {
	t.Parallel()

	body := `{"image_base64":"aGVsbG8=","profile_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var decoded processImageRequest
	if err := validators.DecodeJSONBody(req, &decoded); err != nil {
		t.Fatalf("mime type and idempotency key are optional, got %v", err)
	}
	if decoded.MimeType != "" || decoded.IdempotencyKey != "" {
		t.Fatalf("expected empty optional fields, got %+v", decoded)
	}
}

func TestProcessImageRequestRejectsMissingImage(t *testing.T) {
	t.Parallel()

	body := `{"profile_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var decoded processImageRequest
	if err := validators.DecodeJSONBody(req, &decoded); err == nil {
		t.Fatal("expected validation error without image_base64")
	}
}

func TestProcessImageRequestCapsIdempotencyKey(t *testing.T) {
	t.Parallel()

	body := `{"image_base64":"aGVsbG8=","profile_id":"` + uuid.NewString() + `","idempotency_key":"` + strings.Repeat("k", 129) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var decoded processImageRequest
	if err := validators.DecodeJSONBody(req, &decoded); err == nil {
		t.Fatal("expected validation error for oversized idempotency key")
	}
}
