// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds polls and their vote ledgers in memory.

# Polls

Create validates and stores a poll in the waiting state with a fresh UUID
and a unique six-character join code:

	poll, err := s.Create("Pick one", []string{"A", "B"}, models.Settings{}, time.Now())

Blank options are dropped; fewer than two remaining options is an
INVALID_INPUT error.

# Ledgers

Each poll keeps a ledger mapping voter id to the set of option indices that
voter currently has selected. ApplyVote replaces a voter's ballot in one
step under the poll's lock:

	poll, err := s.ApplyVote(pollID, "user-42", []int{1})

The store maintains two invariants after every vote and panics if either is
broken:

	poll.TotalVotes == number of voters in the ledger
	sum(option.Votes) == sum of ballot sizes

# Lifecycle Mutators

MarkActive, MarkClosed and SetParticipantCount are only called by the
lifecycle engine, which serializes them per poll.
*/
package store
