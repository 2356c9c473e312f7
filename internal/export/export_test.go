package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var rows = []models.PersistedRow{
	{
		Timestamp:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		MergedRecord: models.MergedRecord{Name: "Ann", Email: "a@b.com"},
		ImageURL1:    "https://host/1.png",
		ImageURL2:    "https://host/2.png",
	},
	{MergedRecord: models.MergedRecord{Name: "Bob"}},
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.parquet")

	require.NoError(t, Write(path, rows))

	got, err := parquet.ReadFile[Row](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Row{
		Timestamp: "2024-05-01T09:30:00Z",
		Name:      "Ann",
		Email:     "a@b.com",
		ImageURL1: "https://host/1.png",
		ImageURL2: "https://host/2.png",
	}, got[0])
	assert.Equal(t, "", got[1].Timestamp)
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")

	require.NoError(t, Write(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Rows []models.PersistedRow `yaml:"rows"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "Ann", doc.Rows[0].Name)
	assert.Equal(t, "https://host/2.png", doc.Rows[0].ImageURL2)
}

func TestWriteUnsupported(t *testing.T) {
	assert.Error(t, Write(filepath.Join(t.TempDir(), "cards.csv"), rows))
}
