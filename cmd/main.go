// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/auth"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/clock"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/config"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/database"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/handler"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/logger"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/repository"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/service"
	"github.com/rs/zerolog"
)

// stores bundles the persistence implementations selected by STORE_DRIVER.
type stores struct {
	users   service.UserStore
	events  service.EventStore
	members service.MembershipStore
	status  handler.StatusProbe
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Open the store ─────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL, clk)
	identitySvc := service.NewIdentityService(st.users, tokens, clk, service.WithBcryptCost(cfg.BcryptCost))
	eventSvc := service.NewEventService(st.events, st.members, clk)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.RouterConfig{
		Identity:       identitySvc,
		Events:         eventSvc,
		Status:         st.status,
		Logger:         log,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		StaticDir:      cfg.StaticDir,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &stores{
			users:   store,
			events:  store,
			members: store,
			status:  store,
			close: func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("close sqlite store")
				}
			},
		}, nil

	default:
		pool, err := database.NewPool(ctx, cfg.PostgresDSN(), log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("connected to postgres")
		return &stores{
			users:   repository.NewUserRepository(pool),
			events:  repository.NewEventRepository(pool),
			members: repository.NewMembershipRepository(pool),
			status:  repository.NewStatusRepository(pool),
			close:   pool.Close,
		}, nil
	}
}
