// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP and websocket handlers for the livepoll API.

# Handler Types

Each handler is a struct wrapping the lifecycle engine:

  - PollHandler: Poll creation, lookup, start/close and QR images
  - WaitingRoomHandler: Joining and listing the waiting room
  - VotingHandler: Vote submission
  - ArchiveHandler: Closed poll history (when a database is configured)
  - EventsHandler: Websocket event stream

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(engine, cfg)

# Poll Lifecycle

Polls progress through three states: waiting → active → closed

	POST /api/polls              → CreatePoll (returns code, QR and adminKey)
	POST /api/polls/{id}/start   → StartPoll (arms the auto-close timer)
	POST /api/polls/{id}/close   → ClosePoll (archives the final tallies)

When an admin key salt is configured, start and close require the
X-Admin-Key header.

# Participants

	POST /api/polls/{id}/join         → Join (idempotent per userId)
	GET  /api/polls/{id}/participants → ListParticipants
	POST /api/polls/{id}/vote         → SubmitVote

# Event Stream

GET /ws upgrades to a websocket. Every connection receives global events
(poll-created, poll-stats). Clients send JSON frames to follow a poll:

	{"type": "poll.subscribe", "request_id": "1", "payload": {"pollId": "..."}}

The server acks and queues a poll-data snapshot ahead of that poll's
subsequent events. poll.refresh requests a new snapshot and
poll.unsubscribe stops the poll's events. Failures come back as error
frames carrying the same code as the HTTP API.
*/
package handlers
