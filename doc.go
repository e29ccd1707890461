// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll runs live audience polls: a host creates a poll, participants join
a waiting room with a short code (or QR image), the host starts voting and
everyone watches tallies update over a websocket until the poll is closed by
hand or by its timer.

# Starting the Server

Everything has a default, so the server starts with no configuration:

	go run .

Or with flags:

	go run . -p 3001 -admin-salt "secret" -d "postgres://..." -t postgres

A .env file in the working directory is loaded before the environment is read.

# Configuration

  - PORT (-p): Server port (default: 3001)
  - CORS_ORIGIN (-cors-origin): Allowed browser origin (default: *)
  - ADMIN_KEY_SALT (-admin-salt): Enables admin keys for start/close
  - DATABASE_URL (-d): Enables the closed poll archive
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - EVENT_BUFFER (-event-buffer): Per-connection event queue size (default: 64)
  - POLL_CODE_LENGTH (-code-length): Join code length (default: 6)
  - OTEL_ENDPOINT (-otel-endpoint): OTLP/HTTP trace collector

# Architecture

  - lifecycle: Poll state machine, auto-close timers, event ordering
  - store: In-memory polls and vote ledgers
  - waitingroom: Per-poll participant rosters
  - broadcast: Topic fan-out to websocket subscribers
  - handlers: HTTP and websocket handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, tracing, JSON helpers
  - db: Optional archive of closed polls
  - auth: Poll ids, join codes and admin keys
  - clock: Real and manual time sources
  - telemetry: OpenTelemetry setup
  - cliparse: Configuration parsing
  - apperrors: Error codes shared by HTTP and websocket responses

See package documentation for each component.
*/
package main
