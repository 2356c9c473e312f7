package failures

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrPermission        = errors.New("permission denied")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrIPRestricted      = errors.New("ip address restricted")
	ErrModelNotFound     = errors.New("model not found")
	ErrExtraction        = errors.New("extraction failed")
	ErrModelUnavailable  = fmt.Errorf("model unavailable: %w", ErrExtraction)
	ErrPublish           = errors.New("publish failed")
	ErrPersist           = errors.New("persist failed")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Wrap tags err with a sentinel marker so callers can branch on errors.Is
// while the original cause stays in the chain.
func Wrap(marker error, stage, message string, err error) error {
	detail := buildDetail(stage, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// rule maps a provider error onto a sentinel. Rules are evaluated in order.
type rule struct {
	marker   error
	codes    []int
	contains []string
}

var rules = []rule{
	{marker: ErrInvalidCredential, codes: []int{http.StatusUnauthorized}, contains: []string{"API_KEY_INVALID", "API key not valid", "Incorrect API key"}},
	{marker: ErrIPRestricted, contains: []string{"API_KEY_IP_ADDRESS_BLOCKED", "violates this restriction"}},
	{marker: ErrPermission, codes: []int{http.StatusForbidden}, contains: []string{"PERMISSION_DENIED"}},
	{marker: ErrQuotaExceeded, codes: []int{http.StatusTooManyRequests}, contains: []string{"QUOTA_EXCEEDED", "RESOURCE_EXHAUSTED", "insufficient_quota"}},
	{marker: ErrModelNotFound, codes: []int{http.StatusNotFound}, contains: []string{"404", "not found"}},
}

// Classify returns the sentinel describing err. Errors already tagged with a
// sentinel keep it; anything unrecognised becomes ErrExtraction.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrConfiguration, ErrInvalidCredential, ErrIPRestricted, ErrPermission, ErrQuotaExceeded, ErrModelUnavailable, ErrModelNotFound} {
		if errors.Is(err, known) {
			return known
		}
	}

	code := 0
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code = statusErr.Code
	}

	lower := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, c := range r.codes {
			if code == c {
				return r.marker
			}
		}
		for _, s := range r.contains {
			if strings.Contains(lower, strings.ToLower(s)) {
				return r.marker
			}
		}
	}
	return ErrExtraction
}

// Recoverable reports whether the extraction chain may move on to the next
// candidate model after err.
func Recoverable(err error) bool {
	return Classify(err) == ErrModelNotFound
}

// StatusError is returned by the raw HTTP providers for non-2xx responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code: %d - %s", e.Code, e.Body)
}

// UserMessage renders err as actionable text for the person at the scanner
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrConfiguration):
		return "Service is not configured: " + err.Error()
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid API key. Please check the key configured for the extraction service."
	case errors.Is(err, ErrIPRestricted):
		return "API key IP restriction: the key is limited to specific IP addresses. Allow the current IP in the key settings."
	case errors.Is(err, ErrPermission):
		return "Permission denied. Please ensure the API key has the necessary permissions."
	case errors.Is(err, ErrQuotaExceeded):
		return "API quota exceeded. Please check the usage limits of the extraction service."
	case errors.Is(err, ErrModelUnavailable), errors.Is(err, ErrModelNotFound):
		return "Model not found. None of the configured models is available for this API key or region."
	case errors.Is(err, ErrPublish):
		return "Failed to upload images. Please check the image hosting configuration. (" + err.Error() + ")"
	case errors.Is(err, ErrPersist):
		return "Failed to save the record. You can retry or copy the details manually. (" + err.Error() + ")"
	case errors.Is(err, ErrInvalidTransition):
		return err.Error()
	case errors.Is(err, ErrExtraction):
		return "Failed to extract text: " + err.Error()
	}
	return err.Error()
}

// HTTPStatus maps an error class onto an API response code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrPermission), errors.Is(err, ErrIPRestricted):
		return http.StatusBadGateway
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrModelNotFound), errors.Is(err, ErrPublish), errors.Is(err, ErrPersist):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func buildDetail(stage, message string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
