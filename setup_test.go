package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/raine/room-design-studio/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")

	err := writeEnvFile(path, map[string]string{
		config.EnvSettingsKey:  "s3cr=t",
		config.EnvGeminiKey:    "g-key",
		config.EnvOpenAIKey:    "",
		config.EnvStabilityKey: "st-key",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GEMINI_API_KEY=\"g-key\"\nSTABILITY_API_KEY=\"st-key\"\nSTUDIO_SETTINGS_KEY=\"s3cr=t\"\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestValidateGeminiKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "good":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "bad":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid."}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	assert.NoError(t, validateGeminiKey(srv.URL, "good"))
	assert.EqualError(t, validateGeminiKey(srv.URL, "bad"), "API key not valid.")
	assert.EqualError(t, validateGeminiKey(srv.URL, "other"), "unexpected response (HTTP 503)")
}

func TestGenerateSettingsKey(t *testing.T) {
	a, b := generateSettingsKey(), generateSettingsKey()
	assert.Len(t, a, 44)
	assert.NotEqual(t, a, b)
}

func TestOptionsDefaultsAndFlags(t *testing.T) {
	var opts Options
	_, err := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash).ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", opts.Addr)
	assert.Equal(t, "studio.db", opts.DB)

	opts = Options{}
	_, err = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash).ParseArgs([]string{"--addr", "127.0.0.1:9000", "--journal-dir", "/tmp/journals"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", opts.Addr)
	assert.Equal(t, "/tmp/journals", opts.JournalDir)
}

func TestOptionsEnvFallback(t *testing.T) {
	t.Setenv("STUDIO_DB_PATH", "/var/lib/studio/studio.db")

	var opts Options
	_, err := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash).ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/studio/studio.db", opts.DB)
}
