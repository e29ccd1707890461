// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, event, and domain types.

# Request Types

  - CreatePollRequest: title, options, settings
  - JoinWaitingRoomRequest: userId, name
  - SubmitVoteRequest: voterId, optionIds

# Response Types

  - CreatePollResponse: the poll plus pollId, qrCode, adminKey
  - SubmitVoteResponse: accepted, message
  - ParticipantList: participants, count
  - ErrorResponse: error, message, code

# Event Payloads

  - PollCreatedEvent: pollId, code, title (global topic)
  - PollStatsEvent: pollId, totalVotes, options (global topic)
  - WaitingRoomEvent: pollId, participants, count (poll topic)

poll-updated, poll-started and poll-closed carry the full Poll.

# Domain Types

  - Poll: options, settings, lifecycle state and tallies
  - Option: index, text, vote count
  - Settings: immutable poll behavior switches
  - Participant: waiting room roster entry
  - ArchivedPoll / ArchivedOption: closed-poll results read from the archive

# Constants

	StatusWaiting = "waiting"
	StatusActive  = "active"
	StatusClosed  = "closed"

# Ranking

RankOptions orders options by votes descending with ties broken by option
index, so the first-defined option wins a tie:

	leader, ok := poll.Leading()
*/
package models
