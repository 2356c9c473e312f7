package extractor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/lehigh-university-libraries/cardscanner/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// fakeProvider answers per model and records the order of calls
type fakeProvider struct {
	mu       sync.Mutex
	replies  map[string]reply
	credErr  error
	calls    []string
	lastCfgs []providers.Config
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CheckCredentials() error { return f.credErr }

func (f *fakeProvider) ExtractText(_ context.Context, cfg providers.Config) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg.Model)
	f.lastCfgs = append(f.lastCfgs, cfg)
	r, ok := f.replies[cfg.Model]
	if !ok {
		return "", errors.New("unexpected model " + cfg.Model)
	}
	return r.text, r.err
}

var card = models.CapturedImage{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}

func TestExtractFallsBackOnNotFound(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{
		"m1": {err: errors.New("googleapi: Error 404: models/m1 is not found")},
		"m2": {err: errors.New("404 Not Found")},
		"m3": {text: `{"name":"Ann","email":"a@b.com"}`},
	}}

	fields, err := New(p, []string{"m1", "m2", "m3"}).Extract(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, "Ann", fields.Name)
	assert.Equal(t, "a@b.com", fields.Email)
	assert.Equal(t, []string{"m1", "m2", "m3"}, p.calls)
}

func TestExtractAbortsOnFatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"quota", errors.New("Error 429: QUOTA_EXCEEDED"), failures.ErrQuotaExceeded},
		{"permission", errors.New("PERMISSION_DENIED"), failures.ErrPermission},
		{"ip restriction", errors.New("API_KEY_IP_ADDRESS_BLOCKED"), failures.ErrIPRestricted},
		{"invalid key", errors.New("API_KEY_INVALID"), failures.ErrInvalidCredential},
		{"transport", errors.New("dial tcp: connection refused"), failures.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{replies: map[string]reply{
				"m1": {err: tt.err},
				"m2": {text: `{"name":"never"}`},
			}}

			_, err := New(p, []string{"m1", "m2"}).Extract(context.Background(), card)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, []string{"m1"}, p.calls)
		})
	}
}

func TestExtractAllModelsUnavailable(t *testing.T) {
	last := errors.New("404: models/m2 not found")
	p := &fakeProvider{replies: map[string]reply{
		"m1": {err: errors.New("404: models/m1 not found")},
		"m2": {err: last},
	}}

	_, err := New(p, []string{"m1", "m2"}).Extract(context.Background(), card)

	require.Error(t, err)
	assert.ErrorIs(t, err, failures.ErrModelUnavailable)
	assert.ErrorIs(t, err, failures.ErrExtraction)
	assert.ErrorIs(t, err, last)
}

func TestExtractMissingCredential(t *testing.T) {
	p := &fakeProvider{credErr: config.Require("GEMINI_API_KEY", "your_gemini_api_key_here")}

	_, err := New(p, []string{"m1"}).Extract(context.Background(), card)

	assert.ErrorIs(t, err, failures.ErrConfiguration)
	assert.Empty(t, p.calls, "no network call may be attempted without a credential")
}

func TestExtractDegradesOnNonJSON(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{
		"m1": {text: "Ann Example\nACME Corp"},
		"m2": {text: `{"name":"should not be reached"}`},
	}}

	fields, err := New(p, []string{"m1", "m2"}).Extract(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, models.ExtractedFields{FullText: "Ann Example\nACME Corp"}, fields)
	assert.Equal(t, []string{"m1"}, p.calls)
}

func TestExtractStripsFences(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{
		"m1": {text: "```json\n{\"company\":\"ACME\",\"phone\":\"+1 555 0100\"}\n```"},
	}}

	fields, err := New(p, []string{"m1"}).Extract(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, "ACME", fields.Company)
	assert.Equal(t, "+1 555 0100", fields.Phone)
	assert.Equal(t, "", fields.Name)
}

func TestExtractSendsImageAndPrompt(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{"m1": {text: "{}"}}}

	_, err := New(p, []string{"m1"}, WithTemperature(0)).Extract(context.Background(), card)

	require.NoError(t, err)
	require.Len(t, p.lastCfgs, 1)
	assert.Equal(t, card.Data, p.lastCfgs[0].Image)
	assert.Equal(t, "image/jpeg", p.lastCfgs[0].MIMEType)
	assert.Contains(t, p.lastCfgs[0].Prompt, "jobTitle")
	assert.Equal(t, 0.0, p.lastCfgs[0].Temperature)
}

func TestExtractPair(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{"m1": {text: `{"name":"Ann"}`}}}

	a, b, err := New(p, []string{"m1"}).ExtractPair(context.Background(), card, card)

	require.NoError(t, err)
	assert.Equal(t, "Ann", a.Name)
	assert.Equal(t, "Ann", b.Name)
	assert.Len(t, p.calls, 2)
}

func TestExtractPairFailsWhenOneSideFails(t *testing.T) {
	p := &fakeProvider{replies: map[string]reply{"m1": {err: errors.New("QUOTA_EXCEEDED")}}}

	_, _, err := New(p, []string{"m1"}).ExtractPair(context.Background(), card, card)

	assert.ErrorIs(t, err, failures.ErrQuotaExceeded)
}

func TestNewFromConfig(t *testing.T) {
	e, err := NewFromConfig(config.ExtractionConfig{Provider: "gemini", Models: []string{"gemini-2.0-flash"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.0-flash"}, e.Models())

	_, err = NewFromConfig(config.ExtractionConfig{Provider: "tesseract"})
	assert.ErrorIs(t, err, failures.ErrConfiguration)
}
