package routes

import (
	"net/http"

	"github.com/Dosada05/arcade-tournaments/handlers"
	"github.com/Dosada05/arcade-tournaments/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	healthHandler *handlers.HealthHandler,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Method(http.MethodGet, "/healthz", healthHandler)
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", tournamentHandler.CreateHandler)
			r.Get("/", tournamentHandler.ListHandler)
			r.Get("/mine", tournamentHandler.MineHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Delete("/", tournamentHandler.DeleteHandler)
				r.Post("/join", tournamentHandler.JoinHandler)
				r.Get("/next-match", tournamentHandler.NextMatchHandler)
				r.Post("/matches", tournamentHandler.SubmitResultHandler)
				r.Delete("/loser", tournamentHandler.EliminateLoserHandler)
				r.Get("/winner", tournamentHandler.WinnerHandler)

				r.Route("/participants", func(r chi.Router) {
					r.Get("/", participantHandler.ListHandler)
					r.Delete("/", participantHandler.ResetHandler)
					r.Post("/alias", participantHandler.AddAliasHandler)
					r.Post("/account", participantHandler.AddAccountHandler)
				})
			})
		})

		r.Post("/matches", matchHandler.CreateHandler)

		r.Route("/players/{name}", func(r chi.Router) {
			r.Get("/matches", matchHandler.HistoryHandler)
			r.Get("/stats", matchHandler.StatsHandler)
		})
	})
}
