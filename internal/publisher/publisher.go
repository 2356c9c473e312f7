// Package publisher uploads card images to Cloudinary and returns their
// public URLs.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"golang.org/x/sync/errgroup"
)

const fallbackMessage = "failed to upload image to Cloudinary"

// Publisher performs unsigned uploads against one Cloudinary cloud
type Publisher struct {
	cfg        config.CloudinaryConfig
	httpClient *http.Client
}

// New returns a publisher for cfg
func New(cfg config.CloudinaryConfig) *Publisher {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.cloudinary.com/v1_1"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Publisher{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// CheckConfig fails when the cloud name or upload preset is unset
func (p *Publisher) CheckConfig() error {
	if err := config.Require("CLOUDINARY_CLOUD_NAME", p.cfg.CloudName); err != nil {
		return err
	}
	return config.Require("CLOUDINARY_UPLOAD_PRESET", p.cfg.UploadPreset)
}

// Publish uploads every image concurrently and returns the URLs in input
// order. If any upload fails no URLs are returned.
func (p *Publisher) Publish(ctx context.Context, baseName string, images []models.CapturedImage) ([]string, error) {
	if err := p.CheckConfig(); err != nil {
		return nil, err
	}

	urls := make([]string, len(images))
	var g errgroup.Group
	for i, img := range images {
		name := fmt.Sprintf("%s_%d", baseName, i+1)
		g.Go(func() error {
			url, err := p.upload(ctx, name, img)
			if err != nil {
				return failures.Wrap(failures.ErrPublish, "publish", fmt.Sprintf("image %d", i+1), err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("Image upload failed", "base_name", baseName, "err", err)
		return nil, err
	}

	slog.Info("Uploaded card images", "base_name", baseName, "count", len(urls))
	return urls, nil
}

func (p *Publisher) upload(ctx context.Context, name string, img models.CapturedImage) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	filename := img.Filename
	if filename == "" {
		filename = name
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := w.WriteField("upload_preset", p.cfg.UploadPreset); err != nil {
		return "", fmt.Errorf("failed to write upload preset: %w", err)
	}
	if err := w.WriteField("public_id", "business-cards/"+name); err != nil {
		return "", fmt.Errorf("failed to write public id: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", p.cfg.APIURL, p.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := result.Error.Message
		if decodeErr != nil || msg == "" {
			msg = fallbackMessage
		}
		return "", &failures.StatusError{Code: resp.StatusCode, Body: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response body: %w", decodeErr)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("%s: response has no secure_url", fallbackMessage)
	}
	return result.SecureURL, nil
}
