package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/learningtriangle/ltgate/internal/api"
	"github.com/learningtriangle/ltgate/internal/chat"
	"github.com/learningtriangle/ltgate/internal/completion"
	"github.com/learningtriangle/ltgate/internal/config"
	"github.com/learningtriangle/ltgate/internal/intake"
	"github.com/learningtriangle/ltgate/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] unknown log level %q, using info\n", level)
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// newCompleter builds the completion client. A missing API key yields a nil
// client so the chat endpoint reports the configuration error per request.
func newCompleter(cfg config.CompletionConfig) (completion.Client, error) {
	if cfg.APIKey == "" {
		slog.Warn("completion API key is not set; /chat will answer with a configuration error")
		return nil, nil
	}
	return completion.New(completion.Options{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Sampling: completion.Sampling{
			Temperature:     float32(cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	})
}

func openStore(cfg config.StorageConfig) (*storage.Store, error) {
	store, err := storage.OpenDriver(cfg.Driver, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)
	slog.Info("starting ltgate", "version", version, "driver", cfg.Storage.Driver, "provider", cfg.Completion.Provider)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	completer, err := newCompleter(cfg.Completion)
	if err != nil {
		return fmt.Errorf("building completion client: %w", err)
	}

	handler := api.NewHandler(api.Deps{
		Chat:    chat.NewService(store, completer),
		Gateway: intake.NewGateway(store, loc),
		Store:   store,
	})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

// serve runs srv until ctx is cancelled or the listener fails, then shuts it
// down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("ltgate listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
