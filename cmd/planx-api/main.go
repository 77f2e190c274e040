package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tgienger/planx/internal/api"
	"github.com/tgienger/planx/internal/auth"
	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/mail"
	"github.com/tgienger/planx/internal/media"
	"github.com/tgienger/planx/internal/purge"
	"github.com/tgienger/planx/internal/storage"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("planx-api %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *printConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generated, err := cfg.EnsureJWTSecret()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("auth.jwt_secret is empty, using a random secret; sessions end when the server restarts")
	}

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}
	var filesDir string
	if disk, ok := store.(*storage.DiskStore); ok {
		filesDir = disk.Dir()
	}

	pipeline := media.NewPipeline(store,
		media.ImageResizer{MaxWidth: cfg.Media.MaxImageWidth},
		media.FFmpeg{Path: cfg.Media.FFmpegPath, Width: cfg.Media.VideoWidth},
		logger.With("component", "media"),
	)

	srv := api.New(api.Deps{
		DB:             database,
		Auth:           auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Mail:           mail.NewSender(cfg.Mail, logger.With("component", "mail")),
		Media:          pipeline,
		Logger:         logger,
		Server:         cfg.Server,
		OTPTTL:         cfg.Auth.OTPTTL,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		FilesDir:       filesDir,
	})

	go purge.NewWorker(database, pipeline, cfg.Purge, logger).Run(ctx)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env,
			"db", cfg.Database.Driver, "storage", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	srv.Wait()
	return nil
}
