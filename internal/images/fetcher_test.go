package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		data     []byte
		mimeType string
		wantErr  bool
	}{
		{"by extension", "front.jpg", []byte("jpeg-ish"), "image/jpeg", false},
		{"sniffed", "front.bin", pngBytes, "image/png", false},
		{"not an image", "notes.txt", []byte("hello"), "", true},
		{"empty", "empty.png", []byte{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(p, tt.data, 0644))

			img, err := NewFetcher().Load(context.Background(), p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mimeType, img.MIMEType)
			assert.Equal(t, tt.file, img.Filename)
			assert.Equal(t, tt.data, img.Data)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewFetcher().Load(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestLoadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/back.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	img, err := NewFetcher().Load(context.Background(), server.URL+"/cards/back.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "back.png", img.Filename)

	_, err = NewFetcher().Load(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}
