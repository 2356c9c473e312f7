package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/evaluation"
	"github.com/lehigh-university-libraries/cardscanner/internal/extractor"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var datasetPath string
	var outputDir string
	var concurrency int
	var provider string
	var models []string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure extraction accuracy against a labelled card dataset",
		Long: `Runs extraction and merge over a dataset of labelled card pairs and compares
each merged record with the expected one field by field using Levenshtein distance.

The dataset is a YAML file (samples: [{id, front, back, expected}]) or a parquet
file with id, front, back and one column per contact field.`,
		Example: `  # Evaluate with the configured provider
  cardscanner eval --dataset cards.yaml

  # Compare a specific OpenAI model
  cardscanner eval --dataset cards.parquet --provider openai --model gpt-4o-mini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}

			cfg := config.Load()
			if provider != "" {
				cfg.Extraction.Provider = provider
				if len(models) == 0 {
					cfg.Extraction.Models = config.DefaultModels(provider)
				}
			}
			if len(models) > 0 {
				cfg.Extraction.Models = models
			}

			ext, err := extractor.NewFromConfig(cfg.Extraction)
			if err != nil {
				return err
			}

			ds, err := evaluation.LoadDataset(datasetPath)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			slog.Info("Starting evaluation run", "dataset", datasetPath, "samples", len(ds.Samples), "provider", cfg.Extraction.Provider, "models", ext.Models())

			results := evaluation.NewRunner(ext, concurrency).Run(cmd.Context(), ds)
			summary := evaluation.Summarize(results)

			path, err := evaluation.SaveYAML(outputDir, evaluation.RunConfig{
				Provider:    cfg.Extraction.Provider,
				Models:      ext.Models(),
				Temperature: float64(cfg.Extraction.Temperature),
				DatasetPath: datasetPath,
			}, results, summary)
			if err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}

			evaluation.PrintSummary(cmd.OutOrStdout(), summary)
			fmt.Fprintf(cmd.OutOrStdout(), "\nResults saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to the dataset file (.yaml or .parquet)")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory for the results file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Number of samples processed at once")
	cmd.Flags().StringVar(&provider, "provider", "", "Extraction provider (gemini, openai, or ollama); defaults to CARDSCAN_PROVIDER")
	cmd.Flags().StringSliceVar(&models, "model", nil, "Candidate model, repeatable; defaults to the provider's list")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
