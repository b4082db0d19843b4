package cdn

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

const (
	backgroundRemovalTransform = "e_background_removal"
	taggingAddon               = "google_tagging"
	autoTaggingThreshold       = "0.6"
)

// ErrTimeout marks an upload that exceeded the configured CDN deadline.
var ErrTimeout = errors.New("cdn request timed out")

// Tag mirrors one auto-tagging entry from the provider response.
type Tag struct {
	Name       string
	Confidence float64
}

// UploadInput carries the base64 payload destined for the CDN.
type UploadInput struct {
	DataURI string
	Folder  string
}

// UploadResult is the outcome of an upload: the original URL always, the
// background-removed derivative and tags only when the add-ons succeeded.
type UploadResult struct {
	PublicID     string
	OriginalURL  string
	ProcessedURL *string
	Tags         []Tag
	UsedFallback bool
}

// Client talks to the image CDN's upload API with signed requests.
type Client struct {
	httpClient *http.Client
	cfg        config.CDNConfig
	logg       *logger.Logger
}

// NewClient constructs a CDN client with the configured request timeout.
func NewClient(cfg config.CDNConfig, logg *logger.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cdn cloud name, api key and api secret are required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logg:       logg,
	}, nil
}

// Upload posts the image with background removal and auto-tagging enabled.
// A missing derivative or tag block degrades to a fallback result, not an error.
func (c *Client) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("cdn client not initialized")
	}
	if strings.TrimSpace(input.DataURI) == "" {
		return nil, errors.New("image payload is required")
	}

	folder := input.Folder
	if folder == "" {
		folder = c.cfg.UploadFolder
	}

	params := map[string]string{
		"timestamp":      fmt.Sprintf("%d", time.Now().Unix()),
		"folder":         folder,
		"eager":          backgroundRemovalTransform,
		"categorization": taggingAddon,
		"auto_tagging":   autoTaggingThreshold,
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("file", input.DataURI)
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", signParams(params, c.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.CloudName)
	body, err := c.post(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	var resp struct {
		PublicID  string `json:"public_id"`
		SecureURL string `json:"secure_url"`
		Eager     []struct {
			SecureURL string `json:"secure_url"`
		} `json:"eager"`
		Info struct {
			Categorization map[string]struct {
				Data []struct {
					Tag        string  `json:"tag"`
					Confidence float64 `json:"confidence"`
				} `json:"data"`
			} `json:"categorization"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if resp.PublicID == "" || resp.SecureURL == "" {
		return nil, errors.New("upload response missing public_id or secure_url")
	}

	result := &UploadResult{
		PublicID:    resp.PublicID,
		OriginalURL: resp.SecureURL,
	}

	if len(resp.Eager) > 0 && resp.Eager[0].SecureURL != "" {
		processed := resp.Eager[0].SecureURL
		result.ProcessedURL = &processed
	} else {
		result.UsedFallback = true
	}

	if block, ok := resp.Info.Categorization[taggingAddon]; ok {
		for _, entry := range block.Data {
			result.Tags = append(result.Tags, Tag{Name: entry.Tag, Confidence: entry.Confidence})
		}
	}
	if len(result.Tags) == 0 {
		result.UsedFallback = true
	}

	return result, nil
}

// Destroy removes an uploaded asset by public id.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if c == nil || c.httpClient == nil {
		return errors.New("cdn client not initialized")
	}
	if strings.TrimSpace(publicID) == "" {
		return errors.New("public id is required")
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", signParams(params, c.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.CloudName)
	_, err := c.post(ctx, endpoint, form)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdn returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// signParams implements the CDN's request signing scheme: sorted key=value
// pairs joined with '&', secret appended, SHA-1 hex digest.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
