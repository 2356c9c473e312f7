package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextSendsImage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"name\":\"Ann\"}"}}]}`))
	}))
	defer server.Close()

	o := New("sk-test", server.URL)
	text, err := o.ExtractText(context.Background(), providers.Config{
		Model:    "gpt-4o",
		Prompt:   "read the card",
		Image:    []byte{0x89, 0x50},
		MIMEType: "image/png",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ann"}`, text)
	assert.Equal(t, "gpt-4o", got["model"])

	messages := got["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	imagePart := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,iVA=", imagePart["url"])
}

func TestExtractTextStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"The model does not exist"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New("sk-test", server.URL).ExtractText(context.Background(), providers.Config{Model: "nope"})

	require.Error(t, err)
	assert.Equal(t, failures.ErrModelNotFound, failures.Classify(err))
}

func TestExtractTextRequiresKey(t *testing.T) {
	_, err := New("", "http://127.0.0.1:0").ExtractText(context.Background(), providers.Config{})
	assert.ErrorIs(t, err, failures.ErrConfiguration)
}
