package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/room-design-studio/internal/provider"
)

const (
	AppName     = "room-design-studio"
	EnvFileName = "config.env"
)

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// FilePath returns the full path to the env file.
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Env var names.
const (
	EnvGeminiKey        = "GEMINI_API_KEY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvStabilityKey     = "STABILITY_API_KEY"
	EnvRotation         = "PROVIDER_ROTATION"
	EnvProviderTimeout  = "PROVIDER_TIMEOUT"
	EnvSignupTokens     = "SIGNUP_TOKENS"
	EnvSettingsKey      = "STUDIO_SETTINGS_KEY"
	EnvBOQProvider      = "BOQ_PROVIDER"
	EnvBOQModel         = "BOQ_MODEL"
	EnvBOQCache         = "BOQ_CACHE"
	EnvDesignRetention  = "DESIGN_RETENTION"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvStabilityBaseURL = "STABILITY_BASE_URL"
	EnvGeminiBaseURL    = "GEMINI_BASE_URL"
)

// RequiredEnvVars must be set for the server to start.
var RequiredEnvVars = []string{EnvGeminiKey, EnvSettingsKey}

// Missing returns the names of required variables that are unset.
func Missing() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Config is the server configuration read from the environment.
type Config struct {
	// ProviderKeys holds the default API key per provider id, used by
	// rotation and by the BOQ stage.
	ProviderKeys map[string]string
	// BaseURLs overrides provider endpoints, e.g. for a proxy.
	BaseURLs map[string]string

	Rotation        []string
	ProviderTimeout time.Duration
	SignupTokens    int
	SettingsKey     string

	BOQProvider string
	BOQModel    string
	BOQCache    bool

	// DesignRetention is how long design history is kept. Zero keeps it
	// forever.
	DesignRetention time.Duration
}

// Defaults applied when the variable is unset.
const (
	DefaultRotation        = "gemini,openai,stabilityai"
	DefaultProviderTimeout = 90 * time.Second
	DefaultSignupTokens    = 3
	DefaultBOQProvider     = "gemini-text"
)

// FromEnv reads Config using getenv, normally os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		ProviderKeys:    make(map[string]string),
		BaseURLs:        make(map[string]string),
		ProviderTimeout: DefaultProviderTimeout,
		SignupTokens:    DefaultSignupTokens,
		SettingsKey:     getenv(EnvSettingsKey),
		BOQProvider:     DefaultBOQProvider,
		BOQModel:        strings.TrimSpace(getenv(EnvBOQModel)),
		BOQCache:        true,
	}

	gemini := strings.TrimSpace(getenv(EnvGeminiKey))
	for id, v := range map[string]string{
		"gemini":      gemini,
		"gemini-text": gemini,
		"openai":      strings.TrimSpace(getenv(EnvOpenAIKey)),
		"stabilityai": strings.TrimSpace(getenv(EnvStabilityKey)),
	} {
		if v != "" {
			cfg.ProviderKeys[id] = v
		}
	}
	for id, env := range map[string]string{
		"gemini":      EnvGeminiBaseURL,
		"gemini-text": EnvGeminiBaseURL,
		"openai":      EnvOpenAIBaseURL,
		"stabilityai": EnvStabilityBaseURL,
	} {
		if v := strings.TrimSpace(getenv(env)); v != "" {
			cfg.BaseURLs[id] = v
		}
	}

	rotation := getenv(EnvRotation)
	if strings.TrimSpace(rotation) == "" {
		rotation = DefaultRotation
	}
	cfg.Rotation = splitList(rotation)

	if v := strings.TrimSpace(getenv(EnvProviderTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive duration, got %q", EnvProviderTimeout, v)
		}
		cfg.ProviderTimeout = d
	}

	if v := strings.TrimSpace(getenv(EnvSignupTokens)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%s must be a non-negative integer, got %q", EnvSignupTokens, v)
		}
		cfg.SignupTokens = n
	}

	if v, ok := lookup(getenv, EnvBOQProvider); ok {
		// "none" disables the BOQ stage.
		if strings.EqualFold(v, "none") {
			v = ""
		} else if kind, ok := provider.KindOf(v); !ok || kind != provider.KindText {
			return Config{}, fmt.Errorf("%s must name a text provider or none, got %q", EnvBOQProvider, v)
		}
		cfg.BOQProvider = strings.ToLower(v)
	}

	if v := strings.TrimSpace(getenv(EnvBOQCache)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean, got %q", EnvBOQCache, v)
		}
		cfg.BOQCache = b
	}

	if v := strings.TrimSpace(getenv(EnvDesignRetention)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("%s must be a non-negative duration, got %q", EnvDesignRetention, v)
		}
		cfg.DesignRetention = d
	}

	if cfg.SettingsKey == "" {
		return Config{}, fmt.Errorf("%s is not set", EnvSettingsKey)
	}
	return cfg, nil
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
