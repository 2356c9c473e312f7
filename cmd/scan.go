package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/images"
	"github.com/lehigh-university-libraries/cardscanner/internal/merge"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/lehigh-university-libraries/cardscanner/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newScanCmd() *cobra.Command {
	var noSave bool
	var format string

	cmd := &cobra.Command{
		Use:   "scan FRONT BACK",
		Short: "Extract one card from two image files or URLs",
		Long: `Runs a single capture session from the command line.

Both images are read, extracted concurrently and merged. Unless --no-save is
given the images are uploaded and the record is appended to the configured sink.`,
		Example: `  # Extract, upload and save
  cardscanner scan front.jpg back.jpg

  # Only print the merged record as YAML
  cardscanner scan front.jpg back.jpg --no-save --format yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format: %s (supported: json, yaml)", format)
			}

			ctx := cmd.Context()
			cfg := config.Load()
			p, err := newPipeline(ctx, cfg)
			if err != nil {
				return err
			}

			fetcher := images.NewFetcher()
			front, err := fetcher.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load front image: %w", err)
			}
			back, err := fetcher.Load(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to load back image: %w", err)
			}

			var out any
			if noSave {
				a, b, err := p.extractor.ExtractPair(ctx, front, back)
				if err != nil {
					return fmt.Errorf("%s", failures.UserMessage(err))
				}
				out = struct {
					Extracted1 models.ExtractedFields `json:"extracted1" yaml:"extracted1"`
					Extracted2 models.ExtractedFields `json:"extracted2" yaml:"extracted2"`
					Merged     models.MergedRecord    `json:"merged" yaml:"merged"`
				}{a, b, merge.Merge(a, b)}
			} else {
				state, err := scanSession(ctx, p.newSession(), front, back)
				if errors.Is(err, failures.ErrPersist) {
					// show what was extracted so it can be saved by hand
					if perr := printResult(cmd, state, format); perr != nil {
						return perr
					}
					return err
				}
				if err != nil {
					return fmt.Errorf("%s", failures.UserMessage(err))
				}
				out = state
			}

			return printResult(cmd, out, format)
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "Skip image upload and saving; only extract and merge")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json or yaml)")

	return cmd
}

// scanSession captures both sides and processes them. A save that did not go
// out is returned as an ErrPersist error together with the final state.
func scanSession(ctx context.Context, c *session.Controller, front, back models.CapturedImage) (models.SessionState, error) {
	if err := c.Capture(1, front); err != nil {
		return models.SessionState{}, err
	}
	if err := c.Capture(2, back); err != nil {
		return models.SessionState{}, err
	}
	state, err := c.Process(ctx)
	if err != nil {
		return state, err
	}
	if state.SaveStatus == session.SaveFailed {
		slog.Error("Record was not saved", "session_id", state.ID, "err", state.Error)
		return state, failures.Wrap(failures.ErrPersist, "scan", "record was not saved: "+state.Error, nil)
	}
	return state, nil
}

func printResult(cmd *cobra.Command, v any, format string) error {
	var data []byte
	var err error
	if format == "yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
