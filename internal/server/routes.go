package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/huarongfei/Event-Control-System/internal/timer"
)

func addRoutes(r chi.Router, logger *slog.Logger, c *Console, opts Options) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Event Control System API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, opts.Checks))

	r.With(matchMiddleware(c.store)).Get("/ws/matches/{matchID}", handleLiveWS(c))

	r.Route("/api/matches", func(r chi.Router) {
		r.Use(operatorMiddleware(opts.OperatorKeyHash))
		r.Get("/", handleListMatches(c))
		r.Post("/", handleCreateMatch(c))

		r.Route("/{matchID}", func(r chi.Router) {
			r.Use(matchMiddleware(c.store))
			r.Get("/", handleGetMatch())
			r.Delete("/", handleDeleteMatch(c))
			r.Get("/live", handleLiveSSE(c))

			r.Route("/score", func(r chi.Router) {
				r.Post("/events", handleAddEvent(c))
				r.Delete("/events/{eventID}", handleUndoEvent(c))
				r.Get("/history", handleHistory(c))
				r.Get("/rejected", handleRejected(c))
				r.Get("/context", handleScoreContext(c))
				r.Put("/clock", handleUpdateClock(c))
				r.Post("/fouls", handleRecordFoul(c))
				r.Post("/timeouts", handleRecordTimeout(c))
				r.Post("/cards", handleRecordCard(c))
				r.Post("/shot-clock", handleShotClock(c))
				r.Get("/stats", handleStats(c))
				r.Post("/reset", handleResetScore(c))
			})

			r.Route("/timers", func(r chi.Router) {
				r.Get("/", handleTimerStates(c))
				r.Delete("/", handleDestroyTimers(c))
				r.Post("/start", handleTimerAction(c, (*timer.Manager).StartCurrentPeriod))
				r.Post("/pause", handleTimerAction(c, (*timer.Manager).PauseCurrentPeriod))
				r.Post("/end-period", handleTimerAction(c, (*timer.Manager).EndCurrentPeriod))
				r.Post("/next-period", handleTimerAction(c, (*timer.Manager).NextPeriod))
				r.Post("/shot-clock/reset", handleResetShotClockTimer(c))
				r.Post("/shot-clock/start", handleTimerAction(c, (*timer.Manager).StartShotClock))
				r.Post("/shot-clock/pause", handleTimerAction(c, (*timer.Manager).PauseShotClock))
				r.Post("/timeout", handleStartTimeout(c))
				r.Put("/{timerType}/{op}", handleAdjustTimer(c))
			})
		})
	})
}
