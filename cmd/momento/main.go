package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/capsules"
	"github.com/momento-app/momento/internal/chat"
	"github.com/momento-app/momento/internal/config"
	"github.com/momento-app/momento/internal/gamification"
	"github.com/momento-app/momento/internal/httpapi"
	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/llm"
	"github.com/momento-app/momento/internal/logging"
	"github.com/momento-app/momento/internal/observability"
	"github.com/momento-app/momento/internal/records"
	"github.com/momento-app/momento/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("momento", "info")
		boot.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New("momento", cfg.LogLevel)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	a, err := newApp(context.Background(), cfg, logger, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: a.handler,
	}

	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
}

type app struct {
	store   *records.Store
	handler http.Handler
}

func (a *app) Close() error { return a.store.Close() }

// newApp opens the record store and wires every service behind the HTTP
// router. metrics may be nil.
func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*app, error) {
	if cfg.StoreDriver == config.DriverSQLite && cfg.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite directory %s: %w", cfg.SQLitePath, err)
		}
	}
	backend, err := records.NewBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("record store (%s): %w", cfg.StoreDriver, err)
	}
	store := records.NewStore(backend, logger, metrics, cfg.PageLimit)
	logger.Info().Str("driver", store.Mode()).Msg("record store ready")

	userSvc := users.NewService(store, logger)
	userID := int64(1)
	if cfg.SeedDefaultUser {
		p, err := userSvc.EnsureDefault(ctx, cfg.DefaultUserName, cfg.DefaultUserEmail)
		if err != nil {
			// The journal still works without a profile; rewards will warn.
			logger.Warn().Err(err).Msg("default profile unavailable")
		} else {
			userID = p.ID
		}
	}

	completer, err := llm.NewCompleter(llm.Config{
		Mode:          cfg.CompletionMode,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		HTTPURL:       cfg.CompletionHTTPURL,
		Timeout:       cfg.CompletionTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("completion client: %w", err)
	}
	completionMode := llm.ModeName(completer)
	logger.Info().Str("mode", completionMode).Msg("completion client ready")

	memories := journal.NewService(store, logger, journal.WithDefaultUser(userID))
	chatOpts := []chat.Option{
		chat.WithUserID(userID),
		chat.WithTimeout(cfg.CompletionTimeout),
		chat.WithContextTurns(cfg.ChatContextTurns),
	}
	if n := cfg.ChatMemoryContext; n > 0 {
		chatOpts = append(chatOpts, chat.WithMemoryContext(func(ctx context.Context, _ string) ([]int64, error) {
			return memories.RecentIDs(ctx, n)
		}))
	}

	api := httpapi.New(httpapi.Deps{
		Store:          store,
		Memories:       memories,
		Capsules:       capsules.NewService(store, logger, capsules.WithDefaultUser(userID)),
		Chat:           chat.NewService(store, completer, logger, metrics, chatOpts...),
		Users:          userSvc,
		Rewarder:       gamification.NewRewarder(userSvc, logger, metrics),
		Metrics:        metrics,
		Logger:         logger,
		CompletionMode: completionMode,
		AllowAnyOrigin: cfg.AllowAnyOrigin,
	})
	return &app{store: store, handler: api.Router()}, nil
}
