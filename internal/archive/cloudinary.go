package archive

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CloudinaryConfig holds account credentials for raw uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStorage keeps files as Cloudinary "raw" resources using the
// signed REST API.
type CloudinaryStorage struct {
	cfg         CloudinaryConfig
	apiBase     string
	deliveryURL string
	http        *http.Client
	now         func() time.Time
}

func NewCloudinaryStorage(cfg CloudinaryConfig) *CloudinaryStorage {
	return &CloudinaryStorage{
		cfg:         cfg,
		apiBase:     "https://api.cloudinary.com/v1_1/" + cfg.CloudName,
		deliveryURL: "https://res.cloudinary.com/" + cfg.CloudName,
		http:        &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
	}
}

type cloudinaryResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Bytes     int    `json:"bytes"`
	Result    string `json:"result"`
}

func (c *CloudinaryStorage) publicID(key string) string {
	if c.cfg.Folder == "" {
		return key
	}
	return strings.TrimSuffix(c.cfg.Folder, "/") + "/" + key
}

func (c *CloudinaryStorage) Upload(ctx context.Context, key string, data []byte, _ string) error {
	params := map[string]string{
		"public_id": c.publicID(key),
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.cfg.APIKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", key[strings.LastIndex(key, "/")+1:])
	if err != nil {
		return fmt.Errorf("cloudinary: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("cloudinary: write file: %w", err)
	}
	w.Close()

	_, err = c.post(ctx, "/raw/upload", w.FormDataContentType(), &buf)
	return err
}

func (c *CloudinaryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, http.MethodGet, key)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *CloudinaryStorage) Delete(ctx context.Context, key string) error {
	params := map[string]string{
		"public_id": c.publicID(key),
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.cfg.APIKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	w.Close()

	res, err := c.post(ctx, "/raw/destroy", w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary: destroy returned %q", res.Result)
	}
	return nil
}

func (c *CloudinaryStorage) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.get(ctx, http.MethodHead, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

func (c *CloudinaryStorage) post(ctx context.Context, endpoint, contentType string, body io.Reader) (cloudinaryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, body)
	if err != nil {
		return cloudinaryResult{}, fmt.Errorf("cloudinary: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return cloudinaryResult{}, fmt.Errorf("cloudinary: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return cloudinaryResult{}, fmt.Errorf("cloudinary: %s failed (%d): %s", endpoint, resp.StatusCode, string(raw))
	}
	var result cloudinaryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return cloudinaryResult{}, fmt.Errorf("cloudinary: decode response: %w", err)
	}
	return result, nil
}

func (c *CloudinaryStorage) get(ctx context.Context, method, key string) (*http.Response, error) {
	url := c.deliveryURL + "/raw/upload/" + c.publicID(key)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: request failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary: fetch %s failed (%d)", key, resp.StatusCode)
	}
	return resp, nil
}

// sign computes the API signature: sorted key=value pairs joined by & with
// the secret appended, SHA-1 hex encoded. api_key, file and resource_type are
// never signed.
func (c *CloudinaryStorage) sign(params map[string]string) string {
	exclude := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !exclude[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	h := sha1.New()
	h.Write([]byte(strings.Join(pairs, "&") + c.cfg.APISecret))
	return fmt.Sprintf("%x", h.Sum(nil))
}
