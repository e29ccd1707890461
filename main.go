package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/router"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var err error
	ctx := context.Background()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		slog.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	opts := []lifecycle.Option{
		lifecycle.WithStore(store.New(store.WithCodeGenerator(func() (string, error) {
			return auth.GeneratePollCode(cfg.PollCodeLength)
		}))),
		lifecycle.WithBroadcaster(broadcast.New(cfg.EventBuffer)),
	}

	// The archive is optional; without a database closed polls live in memory only.
	var archive handlers.ArchiveReader
	if cfg.ArchiveEnabled() {
		dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer dbConn.Close()

		if err := db.CreateSchema(ctx, dbConn); err != nil {
			slog.Error("schema creation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database schema ready", "driver", cfg.DatabaseType)

		a := db.NewArchive(dbConn, cfg.DatabaseType)
		archive = a
		opts = append(opts, lifecycle.WithArchiver(a))
	} else {
		slog.Info("No database configured, archive disabled")
	}

	engine := lifecycle.New(opts...)

	// Create server
	server := http.Server{
		Handler: router.NewRouter(engine, archive, cfg),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		engine.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown.
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "admin_keys", cfg.AdminKeysEnabled())
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		slog.Error("tracing shutdown failed", "error", err)
	}
}
