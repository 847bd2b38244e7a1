package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/raine/room-design-studio/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// envFileOrder is the order variables are written to the env file.
var envFileOrder = []string{
	config.EnvGeminiKey,
	config.EnvOpenAIKey,
	config.EnvStabilityKey,
	config.EnvSettingsKey,
}

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard collects the provider keys and writes them to the env file.
// Returns true if the server should continue starting.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🛋  Room Design Studio - First-time Setup"))
	fmt.Println()

	geminiKey := os.Getenv(config.EnvGeminiKey)
	openAIKey := os.Getenv(config.EnvOpenAIKey)
	stabilityKey := os.Getenv(config.EnvStabilityKey)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateGeminiKey(geminiModelsURL, s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key (optional)").
				Description("Enables the openai image provider. Leave empty to skip.").
				Value(&openAIKey),
			huh.NewInput().
				Title("Stability AI API Key (optional)").
				Description("Enables the stabilityai image provider. Leave empty to skip.").
				Value(&stabilityKey),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		config.EnvGeminiKey:    geminiKey,
		config.EnvOpenAIKey:    openAIKey,
		config.EnvStabilityKey: stabilityKey,
	}
	if key := os.Getenv(config.EnvSettingsKey); key != "" {
		values[config.EnvSettingsKey] = key
	} else {
		values[config.EnvSettingsKey] = generateSettingsKey()
	}

	configPath, err := config.FilePath()
	if err == nil {
		err = writeEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	for k, v := range values {
		if v != "" {
			os.Setenv(k, v)
		}
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting server...")
	fmt.Println()

	return true
}

func generateSettingsKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("studio-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateGeminiKey checks a Gemini API key against the models list
// endpoint, which is cheap and rejects bad keys with 400/401/403.
func validateGeminiKey(modelsURL, key string) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	resp, err := resty.New().
		SetTimeout(10*time.Second).
		R().
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get(modelsURL)
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	switch code := resp.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", code)
	case code != 200:
		return fmt.Errorf("unexpected response (HTTP %d)", code)
	}
	return nil
}

// writeEnvFile writes values to path with 0600 permissions since the file
// contains secrets. Empty values are skipped.
func writeEnvFile(path string, values map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	for _, key := range envFileOrder {
		val, ok := values[key]
		if !ok || val == "" {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

func fatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	waitOnWindows()
	os.Exit(1)
}
