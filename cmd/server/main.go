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

	router "github.com/avolkov/relay/internal/adapters/http"
	"github.com/avolkov/relay/internal/app"
	"github.com/avolkov/relay/internal/auth"
	"github.com/avolkov/relay/internal/config"
	"github.com/avolkov/relay/internal/store"
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

	verifier, err := auth.NewJWTVerifier(cfg.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	iceServers, err := config.ParseICEServersJSON(cfg.ICEServersJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse ice servers")
	}

	var users store.UserStore = store.NopStore{}
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect user store")
		}
		defer rs.Close()
		users = rs
	}

	orch := app.NewOrchestrator(users, cfg.PresenceGrace)
	defer orch.Shutdown()

	r := router.SetupRouter(ctx, cfg, orch, verifier, users, iceServers)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("relay server started")
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
