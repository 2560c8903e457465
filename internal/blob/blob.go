// Package blob uploads images to the CDN and returns their public URL.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"ms-marketplace/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("blob upload url not configured")

// File is an uploaded image waiting to be stored.
type File struct {
	Filename string
	Body     io.Reader
}

type Store interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// CDNStore posts multipart uploads to an unsigned upload endpoint.
type CDNStore struct {
	client    *resty.Client
	uploadURL string
	apiKey    string
	folder    string
}

type uploadResponse struct {
	URL       string `json:"url"`
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewCDNStore(cfg config.BlobConfig) *CDNStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CDNStore{
		client:    resty.New().SetTimeout(timeout),
		uploadURL: cfg.UploadURL,
		apiKey:    cfg.APIKey,
		folder:    cfg.Folder,
	}
}

func (s *CDNStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.uploadURL == "" {
		return "", ErrNotConfigured
	}

	// client filenames are only used for the extension
	ext := path.Ext(filename)
	publicID := uuid.NewString()
	if s.folder != "" {
		publicID = s.folder + "/" + publicID
	}

	req := s.client.R().
		SetContext(ctx).
		SetFileReader("file", uuid.NewString()+strings.ToLower(ext), r).
		SetFormData(map[string]string{"public_id": publicID})
	if s.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+s.apiKey)
		req.SetFormData(map[string]string{"api_key": s.apiKey})
	}

	resp, err := req.Post(s.uploadURL)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("upload %s: cdn returned status %d", filename, resp.StatusCode())
	}

	var body uploadResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("upload %s: malformed cdn response: %w", filename, err)
	}
	if body.Error != nil {
		return "", fmt.Errorf("upload %s: %s", filename, body.Error.Message)
	}
	if body.SecureURL != "" {
		return body.SecureURL, nil
	}
	if body.URL != "" {
		return body.URL, nil
	}
	return "", fmt.Errorf("upload %s: cdn response has no url", filename)
}
