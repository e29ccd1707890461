// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter returns the full handler chain (tracing, CORS, mux):

	handler := router.NewRouter(engine, archive, cfg)

archive may be nil; the archive endpoint then returns an empty list.

# Endpoints

Health:

	GET /health

Polls:

	POST /api/polls                   - Create poll
	GET  /api/polls                   - List polls, newest first
	GET  /api/polls/{id}              - Poll snapshot
	GET  /api/polls/{id}/qr           - Join code as PNG
	GET  /api/codes/{code}            - Resolve a join code

Lifecycle (requires X-Admin-Key when an admin salt is configured):

	POST /api/polls/{id}/start - waiting → active
	POST /api/polls/{id}/close - active → closed

Participants:

	POST /api/polls/{id}/join         - Join the waiting room
	GET  /api/polls/{id}/participants - Waiting room roster
	POST /api/polls/{id}/vote         - Submit or change a vote

History and events:

	GET /api/archive - Closed polls with ranked results
	GET /ws          - Websocket event stream
*/
package router
