// Package export converts the workbook ledger into parquet or YAML files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Row is the flat parquet layout of a persisted row
type Row struct {
	Timestamp string `parquet:"timestamp"`
	Name      string `parquet:"name"`
	JobTitle  string `parquet:"job_title"`
	Company   string `parquet:"company"`
	Email     string `parquet:"email"`
	Phone     string `parquet:"phone"`
	Website   string `parquet:"website"`
	Address   string `parquet:"address"`
	ImageURL1 string `parquet:"image_url_1"`
	ImageURL2 string `parquet:"image_url_2"`
}

func toRow(r models.PersistedRow) Row {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return Row{
		Timestamp: ts,
		Name:      r.Name,
		JobTitle:  r.JobTitle,
		Company:   r.Company,
		Email:     r.Email,
		Phone:     r.Phone,
		Website:   r.Website,
		Address:   r.Address,
		ImageURL1: r.ImageURL1,
		ImageURL2: r.ImageURL2,
	}
}

// Write saves rows to path, choosing the format from the file extension
func Write(path string, rows []models.PersistedRow) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		out := make([]Row, 0, len(rows))
		for _, r := range rows {
			out = append(out, toRow(r))
		}
		if err := parquet.WriteFile(path, out); err != nil {
			return fmt.Errorf("failed to write parquet file: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(map[string]any{"rows": rows})
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write YAML file: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format: %s (supported: .parquet, .yaml)", ext)
	}
}
