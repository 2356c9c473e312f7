package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/extractor"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/publisher"
	"github.com/lehigh-university-libraries/cardscanner/internal/session"
	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
)

// pipeline holds the collaborators every capture session shares
type pipeline struct {
	extractor *extractor.Extractor
	publisher *publisher.Publisher
	sink      *sink.Sink
}

func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	ext, err := extractor.NewFromConfig(cfg.Extraction)
	if err != nil {
		return nil, err
	}

	s, err := sink.NewFromConfig(ctx, cfg.Sink)
	if err != nil {
		if !errors.Is(err, failures.ErrConfiguration) {
			return nil, err
		}
		slog.Warn("Sink is not configured, saves will fail until it is", "sink", cfg.Sink.Kind, "err", err)
		s = sink.New(sink.Unavailable(err))
	}

	slog.Info("Pipeline ready",
		"provider", cfg.Extraction.Provider,
		"models", ext.Models(),
		"sink", s.Appender().Name())

	return &pipeline{
		extractor: ext,
		publisher: publisher.New(cfg.Cloudinary),
		sink:      s,
	}, nil
}

func (p *pipeline) newSession() *session.Controller {
	return session.New(p.extractor, p.publisher, p.sink)
}
