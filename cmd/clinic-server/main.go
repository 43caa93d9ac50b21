package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clinic/frontdesk/internal/config"
	"github.com/clinic/frontdesk/internal/domain/scheduling"
	"github.com/clinic/frontdesk/internal/platform/blobstore"
	"github.com/clinic/frontdesk/internal/platform/db"
	"github.com/clinic/frontdesk/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic front desk API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(visitsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newLogger builds the process logger. Development gets the console writer.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// loadConfig loads and validates the configuration and installs the global
// logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)
	log.Logger = logger
	return cfg, logger, nil
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer be.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	if be.pool != nil {
		applied, err := db.NewMigrator(be.pool, db.Migrations()).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		if applied > 0 {
			logger.Info().Int("applied", applied).Msg("migrations applied")
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	grid, err := scheduling.ParseSessions(cfg.ClinicSessions, cfg.SlotMinutes)
	if err != nil {
		return fmt.Errorf("CLINIC_SESSIONS: %w", err)
	}
	blobs, err := blobstore.NewFSBlobStore(cfg.UploadDir, middleware.ParseSize(cfg.MaxUploadSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	srv := newServer(serverDeps{
		cfg:       cfg,
		logger:    logger,
		store:     be.store,
		pool:      be.pool,
		blobs:     blobs,
		grid:      grid,
		loc:       loc,
		recorders: be.recorders,
	})

	if err := seedAccounts(ctx, srv.identity, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed accounts")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Int("slots", grid.Len()).Str("timezone", loc.String()).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
