package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

// MaxSize is the largest card image accepted
const MaxSize = 10 * 1024 * 1024

// Fetcher loads card images from local paths or http(s) URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads ref, which is either a file path or an http(s) URL
func (f *Fetcher) Load(ctx context.Context, ref string) (models.CapturedImage, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return f.download(ctx, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return models.CapturedImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	return build(data, filepath.Base(ref), "")
}

// download fetches an image over HTTP
func (f *Fetcher) download(ctx context.Context, url string) (models.CapturedImage, error) {
	slog.Debug("Downloading image", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.CapturedImage{}, fmt.Errorf("failed to create new request: %w", err)
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return models.CapturedImage{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.CapturedImage{}, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize))
	if err != nil {
		return models.CapturedImage{}, fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return build(data, path.Base(resp.Request.URL.Path), strings.TrimSpace(contentType))
}

func build(data []byte, filename, mimeType string) (models.CapturedImage, error) {
	if len(data) == 0 {
		return models.CapturedImage{}, fmt.Errorf("image %s is empty", filename)
	}
	if len(data) >= MaxSize {
		return models.CapturedImage{}, fmt.Errorf("image %s too large (max 10MB)", filename)
	}

	if unknown(mimeType) {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if unknown(mimeType) {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return models.CapturedImage{}, fmt.Errorf("image %s has unsupported type %s", filename, mimeType)
	}

	return models.CapturedImage{
		Data:     data,
		MIMEType: mimeType,
		Filename: filename,
	}, nil
}

func unknown(mimeType string) bool {
	return mimeType == "" || mimeType == "application/octet-stream"
}
