package providers

import (
	"context"
)

// Config represents one vision-text request to an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MIMEType    string
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	Name() string
	// CheckCredentials reports a configuration error without touching the network
	CheckCredentials() error
	ExtractText(ctx context.Context, config Config) (string, error)
}
