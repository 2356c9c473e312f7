package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
)

// Config holds all application configuration
type Config struct {
	Extraction ExtractionConfig
	Cloudinary CloudinaryConfig
	Sink       SinkConfig
	Auth       AuthConfig
	Port       string
}

// ExtractionConfig selects the vision-text provider and its candidate models
type ExtractionConfig struct {
	Provider      string
	Models        []string
	Temperature   float32
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaURL     string
}

// CloudinaryConfig holds the unsigned upload settings for image hosting
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	APIURL       string
}

// SinkConfig selects where merged records are appended
type SinkConfig struct {
	Kind            string
	ScriptURL       string
	SpreadsheetID   string
	SheetRange      string
	CredentialsFile string
	WorkbookPath    string
}

// AuthConfig is the static credential pair for the login gate
type AuthConfig struct {
	Username string
	Password string
}

var defaultModels = map[string][]string{
	"gemini": {"gemini-2.0-flash", "gemini-2.0-flash-lite", "gemini-flash-latest"},
	"openai": {"gpt-4o", "gpt-4o-mini"},
	"ollama": {"mistral-small3.2:24b"},
}

// DefaultModels returns the candidate models used for provider when none are configured
func DefaultModels(provider string) []string {
	return append([]string(nil), defaultModels[strings.ToLower(provider)]...)
}

// Load reads configuration from the environment. Call after godotenv.Load.
func Load() *Config {
	provider := strings.ToLower(getEnv("CARDSCAN_PROVIDER", "gemini"))
	models := getEnvAsList("CARDSCAN_MODELS", defaultModels[provider])

	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = getEnv("OLLAMA_HOST", "http://localhost:11434")
	}

	return &Config{
		Extraction: ExtractionConfig{
			Provider:      provider,
			Models:        models,
			Temperature:   getEnvAsFloat32("CARDSCAN_TEMPERATURE", 0.1),
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaURL:     ollamaURL,
		},
		Cloudinary: CloudinaryConfig{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			UploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
			APIURL:       getEnv("CLOUDINARY_API_URL", "https://api.cloudinary.com/v1_1"),
		},
		Sink: SinkConfig{
			Kind:            strings.ToLower(getEnv("CARDSCAN_SINK", "webhook")),
			ScriptURL:       os.Getenv("GOOGLE_SCRIPT_URL"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
			SheetRange:      getEnv("GOOGLE_SHEETS_RANGE", "Sheet1!A:J"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			WorkbookPath:    getEnv("CARDSCAN_WORKBOOK_PATH", "business-cards.xlsx"),
		},
		Auth: AuthConfig{
			Username: os.Getenv("ADMIN_USERNAME"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Port: getEnv("PORT", "8888"),
	}
}

var placeholderPattern = regexp.MustCompile(`^your_[a-z0-9_]+_here$`)

// IsPlaceholder reports whether v is unset or still holds a template value
// such as "your_gemini_api_key_here".
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || placeholderPattern.MatchString(strings.ToLower(v))
}

// Require returns a configuration error naming key when value is a placeholder
func Require(key, value string) error {
	if IsPlaceholder(value) {
		return failures.Wrap(failures.ErrConfiguration, "", fmt.Sprintf("%s is not configured; add it to your .env file", key), nil)
	}
	return nil
}

// Validate checks the settings the selected sink cannot run without
func (s SinkConfig) Validate() error {
	switch s.Kind {
	case "webhook":
		return Require("GOOGLE_SCRIPT_URL", s.ScriptURL)
	case "sheets":
		if err := Require("GOOGLE_SHEETS_SPREADSHEET_ID", s.SpreadsheetID); err != nil {
			return err
		}
		return Require("GOOGLE_APPLICATION_CREDENTIALS", s.CredentialsFile)
	case "workbook":
		return Require("CARDSCAN_WORKBOOK_PATH", s.WorkbookPath)
	default:
		return failures.Wrap(failures.ErrConfiguration, "", fmt.Sprintf("unsupported sink: %s", s.Kind), nil)
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
