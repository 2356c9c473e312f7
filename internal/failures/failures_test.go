package failures

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "invalid api key",
			err:      errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key. API_KEY_INVALID"),
			expected: ErrInvalidCredential,
		},
		{
			name:     "ip restriction",
			err:      errors.New("Error 403: The provided API key has an IP address restriction. The originating IP address of the call (1.2.3.4) violates this restriction."),
			expected: ErrIPRestricted,
		},
		{
			name:     "permission denied",
			err:      errors.New("rpc error: PERMISSION_DENIED"),
			expected: ErrPermission,
		},
		{
			name:     "quota exceeded",
			err:      errors.New("Error 429: QUOTA_EXCEEDED for project"),
			expected: ErrQuotaExceeded,
		},
		{
			name:     "model not found message",
			err:      errors.New("googleapi: Error 404: models/gemini-2.0-flash is not found for API version v1beta"),
			expected: ErrModelNotFound,
		},
		{
			name:     "googleapi 404 code",
			err:      fmt.Errorf("failed to generate content: %w", &googleapi.Error{Code: http.StatusNotFound, Message: "gone"}),
			expected: ErrModelNotFound,
		},
		{
			name:     "status error 429",
			err:      &StatusError{Code: http.StatusTooManyRequests, Body: "slow down"},
			expected: ErrQuotaExceeded,
		},
		{
			name:     "status error 401",
			err:      &StatusError{Code: http.StatusUnauthorized, Body: "no"},
			expected: ErrInvalidCredential,
		},
		{
			name:     "tagged configuration error keeps its class",
			err:      Wrap(ErrConfiguration, "extract", "GEMINI_API_KEY not set", nil),
			expected: ErrConfiguration,
		},
		{
			name:     "unknown falls back to extraction",
			err:      errors.New("connection reset by peer"),
			expected: ErrExtraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(errors.New("404 model not found")))
	assert.False(t, Recoverable(errors.New("QUOTA_EXCEEDED")))
	assert.False(t, Recoverable(errors.New("PERMISSION_DENIED: model not found")))
}

func TestModelUnavailableIsExtraction(t *testing.T) {
	err := Wrap(ErrModelUnavailable, "extract", "all candidates exhausted", errors.New("404"))
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, ErrModelUnavailable, Classify(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(ErrPublish, "publish", "image 2", cause)

	assert.ErrorIs(t, err, ErrPublish)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "publish failed: publish: image 2: dial tcp: connection refused", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrInvalidTransition))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Wrap(ErrConfiguration, "", "missing", nil)))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrQuotaExceeded))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrModelUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(ErrQuotaExceeded), "quota exceeded")
	assert.Contains(t, UserMessage(ErrModelUnavailable), "Model not found")
	assert.Contains(t, UserMessage(Wrap(ErrPublish, "publish", "bad preset", nil)), "image hosting configuration")
}
