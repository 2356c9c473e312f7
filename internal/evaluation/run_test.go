package evaluation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fileExtractor answers with fields keyed by the image file name
type fileExtractor map[string]models.ExtractedFields

func (f fileExtractor) ExtractPair(_ context.Context, a, b models.CapturedImage) (models.ExtractedFields, models.ExtractedFields, error) {
	if strings.HasPrefix(a.Filename, "broken") {
		return models.ExtractedFields{}, models.ExtractedFields{}, errors.New("QUOTA_EXCEEDED")
	}
	return f[a.Filename], f[b.Filename], nil
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("\x89PNG\r\n\x1a\n"), 0644))
	}
}

func TestLoadYAMLDatasetAndRun(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "ann-front.png", "ann-back.png", "broken-front.png", "broken-back.png")
	dataset := `samples:
  - id: ann
    front: ann-front.png
    back: ann-back.png
    expected:
      name: Ann Example
      email: a@b.com
  - front: broken-front.png
    back: broken-back.png
`
	path := filepath.Join(dir, "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Samples, 2)
	assert.Equal(t, "sample-2", ds.Samples[1].ID)

	runner := NewRunner(fileExtractor{
		"ann-front.png": {Name: "Ann Example"},
		"ann-back.png":  {Email: "a@b.com"},
	}, 2)
	results := runner.Run(context.Background(), ds)

	require.Len(t, results, 2)
	assert.Equal(t, "ann", results[0].ID)
	assert.Equal(t, models.MergedRecord{Name: "Ann Example", Email: "a@b.com"}, results[0].Actual)
	assert.InDelta(t, 1.0, results[0].Comparison.OverallScore, 0.0001)
	assert.Contains(t, results[1].Error, "QUOTA_EXCEEDED")

	summary := Summarize(results)
	assert.Equal(t, 1, summary.SuccessfulEvals)
	assert.Equal(t, 1, summary.FailedEvals)
	assert.InDelta(t, 1.0, summary.FieldAccuracies["email"], 0.0001)

	var out bytes.Buffer
	PrintSummary(&out, summary)
	assert.Contains(t, out.String(), "Successful Evals:   1")

	outPath, err := SaveYAML(filepath.Join(dir, "evals"), RunConfig{Provider: "gemini", Models: []string{"gemini-2.0-flash"}, Timestamp: "t0"}, results, summary)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evals", "gemini-2.0-flash-t0.yaml"), outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var report Report
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Config.SampleSize)
	assert.Equal(t, "Ann Example", report.Results[0].Actual.Name)
}

func TestLoadParquetDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.parquet")
	require.NoError(t, parquet.WriteFile(path, []parquetSample{
		{ID: "p1", Front: "f.png", Back: "b.png", Name: "Ann", Phone: "555 0100"},
	}))

	ds, err := LoadDataset(path)
	require.NoError(t, err)

	require.Len(t, ds.Samples, 1)
	assert.Equal(t, "p1", ds.Samples[0].ID)
	assert.Equal(t, models.MergedRecord{Name: "Ann", Phone: "555 0100"}, ds.Samples[0].Expected)
	assert.Equal(t, filepath.Join(dir, "f.png"), ds.resolve(ds.Samples[0].Front))
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDataset(filepath.Join(dir, "cards.csv"))
	assert.Error(t, err)

	path := filepath.Join(dir, "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples:\n  - id: x\n    front: a.png\n"), 0644))
	_, err = LoadDataset(path)
	assert.ErrorContains(t, err, "front and back")
}
