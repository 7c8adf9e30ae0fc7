package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/config"
	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/handlers"
	"github.com/Dosada05/arcade-tournaments/logger"
	"github.com/Dosada05/arcade-tournaments/repositories"
	api "github.com/Dosada05/arcade-tournaments/routes"
	"github.com/Dosada05/arcade-tournaments/services"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info().
		Int("port", cfg.ServerPort).
		Str("driver", cfg.DatabaseDriver).
		Str("draw_policy", string(cfg.DrawPolicy)).
		Str("winner_rule", string(cfg.WinnerRule)).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, 5*time.Second, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database connection")
		} else {
			log.Info().Msg("database connection closed")
		}
	}()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := brackets.NewHub(log)
	go wsHub.Run(hubCtx)
	log.Info().Msg("websocket hub started")

	userRepo := repositories.NewUserRepository(store)
	tournamentRepo := repositories.NewTournamentRepository(store)
	participantRepo := repositories.NewParticipantRepository(store)
	matchRepo := repositories.NewMatchRepository(store)

	policy := services.MatchPolicy{
		Draw:   cfg.DrawPolicy,
		Winner: cfg.WinnerRule,
	}

	tournamentService := services.NewTournamentService(store, tournamentRepo, participantRepo, userRepo, wsHub, log)
	rankingService := services.NewRankingService(tournamentRepo, participantRepo, userRepo, matchRepo, brackets.NewSingleEliminationSeeder())
	matchService := services.NewMatchService(
		store,
		tournamentRepo,
		participantRepo,
		matchRepo,
		userRepo,
		rankingService,
		wsHub,
		policy,
		log,
	)

	healthHandler := handlers.NewHealthHandler(store)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, rankingService, matchService)
	participantHandler := handlers.NewParticipantHandler(tournamentService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSOrigins)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{JWTSecret: cfg.JWTSecretKey, AllowedOrigins: cfg.CORSOrigins, Logger: log},
		healthHandler,
		tournamentHandler,
		participantHandler,
		matchHandler,
		webSocketHandler,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     stdlog.New(log, "", 0),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("address", server.Addr).Msg("starting server")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			if closeErr := server.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to force close server")
			}
		} else {
			log.Info().Msg("server shutdown complete")
		}
	}

	stopHub()
	log.Info().Msg("application exited")
}
