// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lifecycle implements the poll state machine.

# States

	waiting --StartPoll--> active --ClosePoll / timer--> closed

Closed is terminal. StartPoll is valid once per poll; ClosePoll on a waiting
or closed poll is INVALID_STATE. Votes are accepted only while active.

# Serialization

Every command on a poll runs under that poll's mutex. Events for the poll are
published before the mutex is released, so subscribers see them in the order
the commands were applied, and the synchronous result of a command is the
same snapshot that was broadcast.

# Auto-close

When a poll with durationMinutes starts, a timer is armed on the engine's
clock for endTime. The timer re-checks the status when it fires and does
nothing if the poll was already closed. ClosePoll stops the timer.

# Events

	poll-created          global     PollCreatedEvent
	poll-stats            global     PollStatsEvent
	poll-started          poll:<id>  Poll
	poll-updated          poll:<id>  Poll
	poll-closed           poll:<id>  Poll
	waiting-room-updated  poll:<id>  WaitingRoomEvent
*/
package lifecycle
