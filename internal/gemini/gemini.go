package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
}

// New returns a new Gemini provider
func New(apiKey string) *Gemini {
	return &Gemini{apiKey: apiKey}
}

func (g *Gemini) Name() string {
	return "gemini"
}

// CheckCredentials fails when the API key is missing or still the template value
func (g *Gemini) CheckCredentials() error {
	return config.Require("GEMINI_API_KEY", g.apiKey)
}

// ExtractText sends the prompt and image to Gemini and returns the response text
func (g *Gemini) ExtractText(ctx context.Context, cfg providers.Config) (string, error) {
	if err := g.CheckCredentials(); err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))

	parts := []genai.Part{genai.Text(cfg.Prompt)}
	if len(cfg.Image) > 0 {
		parts = append(parts, genai.Blob{MIMEType: cfg.MIMEType, Data: cfg.Image})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with %s: %w", cfg.Model, err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return b.String(), nil
}
