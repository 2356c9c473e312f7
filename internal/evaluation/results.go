package evaluation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig describes the settings a run was made with
type RunConfig struct {
	Provider    string   `yaml:"provider"`
	Models      []string `yaml:"models"`
	Temperature float64  `yaml:"temperature"`
	DatasetPath string   `yaml:"datasetpath"`
	SampleSize  int      `yaml:"samplesize"`
	Timestamp   string   `yaml:"timestamp"`
}

// Report is the complete evaluation file
type Report struct {
	Config  RunConfig `yaml:"config"`
	Summary *Summary  `yaml:"summary"`
	Results []Result  `yaml:"results"`
}

// SaveYAML writes the report to <dir>/<model>-<timestamp>.yaml and returns the path
func SaveYAML(dir string, cfg RunConfig, results []Result, summary *Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	cfg.SampleSize = len(results)

	model := cfg.Provider
	if len(cfg.Models) > 0 {
		model = cfg.Models[0]
	}
	model = strings.NewReplacer("/", "_", ":", "_").Replace(model)
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", model, cfg.Timestamp))

	data, err := yaml.Marshal(&Report{Config: cfg, Summary: summary, Results: results})
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
