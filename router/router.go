// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/middleware"
)

// pinger is implemented by archives that can report database health.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires every route. archive may be nil when no database is
// configured.
func NewRouter(engine *lifecycle.Engine, archive handlers.ArchiveReader, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(engine, cfg)
	roomHandler := handlers.NewWaitingRoomHandler(engine)
	votingHandler := handlers.NewVotingHandler(engine)
	archiveHandler := handlers.NewArchiveHandler(archive)
	eventsHandler := handlers.NewEventsHandler(engine, cfg.CORSOrigin)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := archive.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				slog.Error("health check failed", "error", err)
				http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /api/polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /api/polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /api/polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /api/polls/{id}/qr", middleware.WithLogging(pollHandler.QRCode))
	mux.HandleFunc("GET /api/codes/{code}", middleware.WithLogging(pollHandler.GetPollByCode))

	// Lifecycle (admin, X-Admin-Key when configured)
	mux.HandleFunc("POST /api/polls/{id}/start", middleware.WithLogging(pollHandler.StartPoll))
	mux.HandleFunc("POST /api/polls/{id}/close", middleware.WithLogging(pollHandler.ClosePoll))

	// Participants
	mux.HandleFunc("POST /api/polls/{id}/join", middleware.WithLogging(roomHandler.Join))
	mux.HandleFunc("GET /api/polls/{id}/participants", middleware.WithLogging(roomHandler.ListParticipants))
	mux.HandleFunc("POST /api/polls/{id}/vote", middleware.WithLogging(votingHandler.SubmitVote))

	// History
	mux.HandleFunc("GET /api/archive", middleware.WithLogging(archiveHandler.ListArchived))

	// Event stream
	mux.HandleFunc("GET /ws", middleware.WithLogging(eventsHandler.ServeHTTP))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return middleware.WithTracing(middleware.CORS(cfg.CORSOrigin)(mux))
}
