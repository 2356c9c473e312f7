package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/gemini"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/lehigh-university-libraries/cardscanner/internal/ollama"
	"github.com/lehigh-university-libraries/cardscanner/internal/openai"
	"github.com/lehigh-university-libraries/cardscanner/internal/providers"
	"golang.org/x/sync/errgroup"
)

// Extractor reads contact fields from card images, walking an ordered list
// of candidate models until one answers.
type Extractor struct {
	provider    providers.Provider
	models      []string
	temperature float64
	logger      *slog.Logger
}

// Option customizes the extractor
type Option func(*Extractor)

// WithTemperature overrides the sampling temperature (defaults to 0.1)
func WithTemperature(t float64) Option {
	return func(e *Extractor) {
		e.temperature = t
	}
}

// WithLogger overrides the default slog logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an extractor that tries models in the given order, most capable first
func New(provider providers.Provider, candidates []string, opts ...Option) *Extractor {
	e := &Extractor{
		provider:    provider,
		models:      candidates,
		temperature: 0.1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds the provider named in cfg and wraps it in an Extractor
func NewFromConfig(cfg config.ExtractionConfig) (*Extractor, error) {
	var provider providers.Provider
	switch cfg.Provider {
	case "gemini":
		provider = gemini.New(cfg.GeminiAPIKey)
	case "openai":
		provider = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "ollama":
		provider = ollama.New(cfg.OllamaURL)
	default:
		return nil, failures.Wrap(failures.ErrConfiguration, "", fmt.Sprintf("unsupported extraction provider: %s", cfg.Provider), nil)
	}
	return New(provider, cfg.Models, WithTemperature(float64(cfg.Temperature))), nil
}

// Models returns the candidate model identifiers in preference order
func (e *Extractor) Models() []string {
	return e.models
}

// Extract reads the contact fields from a single card image.
//
// A model that answers with text that is not a fields object still counts as
// an answer: the raw text is returned in FullText with every other field
// empty. Only "model not found" failures move on to the next candidate; any
// other failure ends the chain.
func (e *Extractor) Extract(ctx context.Context, image models.CapturedImage) (models.ExtractedFields, error) {
	if err := e.provider.CheckCredentials(); err != nil {
		return models.ExtractedFields{}, err
	}
	if len(e.models) == 0 {
		return models.ExtractedFields{}, failures.Wrap(failures.ErrConfiguration, "extract", "no candidate models configured", nil)
	}

	prompt := buildPrompt()
	var lastErr error

	for _, model := range e.models {
		start := time.Now()
		e.logger.Info("Attempting extraction", "provider", e.provider.Name(), "model", model, "bytes", len(image.Data))

		text, err := e.provider.ExtractText(ctx, providers.Config{
			Model:       model,
			Temperature: e.temperature,
			Prompt:      prompt,
			Image:       image.Data,
			MIMEType:    image.MIMEType,
		})
		if err != nil {
			e.logger.Warn("Extraction attempt failed", "model", model, "err", err)
			if !failures.Recoverable(err) {
				return models.ExtractedFields{}, failures.Wrap(failures.Classify(err), "extract", model, err)
			}
			lastErr = err
			continue
		}

		text = stripFences(text)
		fields, parseErr := parseFields(text)
		if parseErr != nil {
			e.logger.Warn("Failed to parse fields from model response, returning raw text", "model", model, "err", parseErr)
			return degraded(text), nil
		}

		e.logger.Info("Extraction complete",
			"model", model,
			"name", fields.Name,
			"company", fields.Company,
			"elapsed_ms", time.Since(start).Milliseconds())
		return fields, nil
	}

	return models.ExtractedFields{}, failures.Wrap(failures.ErrModelUnavailable, "extract",
		fmt.Sprintf("all %d candidate models failed", len(e.models)), lastErr)
}

// ExtractPair extracts both card sides concurrently and waits for both calls
// to finish. A failure on one side does not cancel the other.
func (e *Extractor) ExtractPair(ctx context.Context, first, second models.CapturedImage) (models.ExtractedFields, models.ExtractedFields, error) {
	var a, b models.ExtractedFields
	var g errgroup.Group
	g.Go(func() error {
		var err error
		a, err = e.Extract(ctx, first)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = e.Extract(ctx, second)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ExtractedFields{}, models.ExtractedFields{}, err
	}
	return a, b, nil
}
