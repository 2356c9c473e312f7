package evaluation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Sample is one labelled card: both image paths and the record a perfect
// extraction would produce.
type Sample struct {
	ID       string              `yaml:"id"`
	Front    string              `yaml:"front"`
	Back     string              `yaml:"back"`
	Expected models.MergedRecord `yaml:"expected"`
}

// Dataset is a collection of samples. Image paths are relative to Dir.
type Dataset struct {
	Dir     string   `yaml:"-"`
	Samples []Sample `yaml:"samples"`
}

// parquetSample is the flat row layout of a parquet dataset
type parquetSample struct {
	ID       string `parquet:"id"`
	Front    string `parquet:"front"`
	Back     string `parquet:"back"`
	Name     string `parquet:"name,optional"`
	JobTitle string `parquet:"job_title,optional"`
	Company  string `parquet:"company,optional"`
	Email    string `parquet:"email,optional"`
	Phone    string `parquet:"phone,optional"`
	Website  string `parquet:"website,optional"`
	Address  string `parquet:"address,optional"`
}

// LoadDataset reads a YAML or parquet dataset file
func LoadDataset(path string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var samples []Sample
	var err error
	switch ext {
	case ".yaml", ".yml":
		samples, err = loadYAML(path)
	case ".parquet":
		samples, err = loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .yaml, .yml, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	for i, s := range samples {
		if s.ID == "" {
			samples[i].ID = fmt.Sprintf("sample-%d", i+1)
		}
		if s.Front == "" || s.Back == "" {
			return nil, fmt.Errorf("sample %s: front and back image paths are required", samples[i].ID)
		}
	}

	slog.Debug("Loaded dataset", "path", path, "samples", len(samples))
	return &Dataset{Dir: filepath.Dir(path), Samples: samples}, nil
}

func loadYAML(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds.Samples, nil
}

func loadParquet(path string) ([]Sample, error) {
	rows, err := parquet.ReadFile[parquetSample](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet dataset: %w", err)
	}

	samples := make([]Sample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, Sample{
			ID:    r.ID,
			Front: r.Front,
			Back:  r.Back,
			Expected: models.MergedRecord{
				Name:     r.Name,
				JobTitle: r.JobTitle,
				Company:  r.Company,
				Email:    r.Email,
				Phone:    r.Phone,
				Website:  r.Website,
				Address:  r.Address,
			},
		})
	}
	return samples, nil
}

func (d *Dataset) resolve(p string) string {
	if filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(d.Dir, p)
}
