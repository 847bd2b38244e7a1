package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/raine/room-design-studio/config"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/httpapi"
	"github.com/raine/room-design-studio/internal/provider"
	"github.com/raine/room-design-studio/internal/retention"
	"github.com/raine/room-design-studio/internal/storage"
	"github.com/raine/room-design-studio/internal/studio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Options are the command-line flags. Each falls back to an env var.
type Options struct {
	Addr       string `long:"addr" env:"STUDIO_ADDR" default:":8080" description:"HTTP listen address"`
	DB         string `long:"db" env:"STUDIO_DB_PATH" default:"studio.db" description:"SQLite database path"`
	LogFile    string `long:"log-file" env:"STUDIO_LOG_FILE" default:"room-design-studio.log" description:"log file path, empty to disable"`
	JournalDir string `long:"journal-dir" env:"STUDIO_JOURNAL_DIR" description:"directory for per-owner design journals"`
}

const shutdownTimeout = 15 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var opts Options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	config.LoadEnvFile()

	if missing := config.Missing(); len(missing) > 0 {
		if isInteractiveTerminal() {
			if !runSetupWizard() {
				waitOnWindows()
				os.Exit(1)
			}
		} else {
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd; journald keeps the logs there.
	_, underSystemd := os.LookupEnv("JOURNAL_STREAM")
	if underSystemd || opts.LogFile == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", opts.LogFile).Msg("logging to file")
	}

	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		fatalWithWait("invalid configuration: %v", err)
	}

	store, err := storage.NewSQLiteStore(opts.DB, storage.DeriveKey(cfg.SettingsKey))
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", opts.DB).Msg("store initialized")

	var journal *studio.Journal
	if opts.JournalDir != "" {
		journal, err = studio.NewJournal(opts.JournalDir)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize design journal")
		}
	}

	registry := provider.NewRegistry(provider.Options{
		BaseURLs: cfg.BaseURLs,
		Timeout:  cfg.ProviderTimeout,
	})

	var boqProvider design.ProviderConfig
	if cfg.BOQProvider != "" {
		boqProvider = design.ProviderConfig{
			ProviderID: cfg.BOQProvider,
			APIKey:     cfg.ProviderKeys[cfg.BOQProvider],
			ModelID:    cfg.BOQModel,
		}
	}
	var boqCache provider.BOQCache
	if cfg.BOQCache {
		boqCache = store
	}

	orchestrator := studio.New(studio.Config{
		Ledger:          store,
		Providers:       registry,
		Rotation:        cfg.Rotation,
		DefaultKeys:     cfg.ProviderKeys,
		BOQProvider:     boqProvider,
		BOQCache:        boqCache,
		ProviderTimeout: cfg.ProviderTimeout,
		Recorder:        store,
		History:         store,
		Journal:         journal,
	})

	api := httpapi.New(httpapi.Deps{
		Designs:   orchestrator,
		Ledger:    store,
		Purchases: store,
		Settings:  store,
		History:   store,
	}, cfg.SignupTokens, 2*cfg.ProviderTimeout+30*time.Second)

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           httpapi.Logging(api.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", opts.Addr).
			Strs("rotation", cfg.Rotation).
			Str("boqProvider", cfg.BOQProvider).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.DesignRetention > 0 {
		pruner := retention.NewService(store, cfg.DesignRetention)
		g.Go(func() error {
			pruner.Run(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
