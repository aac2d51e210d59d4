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

	router "github.com/nexuschat/server/internal/adapters/http"
	"github.com/nexuschat/server/internal/app"
	"github.com/nexuschat/server/internal/auth"
	"github.com/nexuschat/server/internal/config"
	"github.com/nexuschat/server/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open store")
	}
	defer db.Close()

	messages := storage.NewMessageRepository(db)
	users := storage.NewUserRepository(db)
	presenceStore := storage.NewPresenceRepository(db)

	registry := app.NewRegistry()
	rooms := app.NewRoomIndex(registry)
	presence := app.NewPresence(registry, presenceStore)
	calls := app.NewCalls()
	chat := app.NewRouter(registry, rooms, presence, calls, messages, users)

	verifier := auth.New(cfg.Secret, cfg.TokenTTL)

	r := router.SetupRouter(ctx, cfg, chat, verifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("NexusChat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
