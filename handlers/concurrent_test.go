// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

// TestConcurrentVoteSubmissions verifies that simultaneous votes from
// different voters are all counted exactly once
func TestConcurrentVoteSubmissions(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	votingHandler := NewVotingHandler(engine)

	poll := testutil.CreateActivePoll(t, engine, models.SettingsInput{}, "A", "B", "C")

	numVoters := 60
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			body := models.SubmitVoteRequest{
				VoterID:   fmt.Sprintf("voter-%d", voterIdx),
				OptionIDs: []int{voterIdx % 3},
			}
			w := submitVote(votingHandler, poll.ID, body)
			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful submissions, got %d", numVoters, successCount.Load())
	}

	got, _ := engine.GetPoll(context.Background(), poll.ID)
	if got.TotalVotes != numVoters {
		t.Errorf("Expected %d voters, got %d", numVoters, got.TotalVotes)
	}
	for _, opt := range got.Options {
		if opt.Votes != numVoters/3 {
			t.Errorf("option %d: expected %d votes, got %d", opt.ID, numVoters/3, opt.Votes)
		}
	}
}

// TestConcurrentDuplicateVotes verifies that only one of many simultaneous
// ballots from the same voter is accepted when revoting is off
func TestConcurrentDuplicateVotes(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	votingHandler := NewVotingHandler(engine)

	poll := testutil.CreateActivePoll(t, engine, models.SettingsInput{})

	numAttempts := 20
	var successCount, conflictCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := submitVote(votingHandler, poll.ID, models.SubmitVoteRequest{VoterID: "same-voter", OptionIDs: []int{idx % 3}})
			switch w.Code {
			case http.StatusOK:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 accepted vote, got %d", successCount.Load())
	}
	if int(conflictCount.Load()) != numAttempts-1 {
		t.Errorf("Expected %d conflicts, got %d", numAttempts-1, conflictCount.Load())
	}

	got, _ := engine.GetPoll(context.Background(), poll.ID)
	sum := 0
	for _, opt := range got.Options {
		sum += opt.Votes
	}
	if got.TotalVotes != 1 || sum != 1 {
		t.Errorf("Expected one vote in total, got totalVotes=%d sum=%d", got.TotalVotes, sum)
	}
}

// TestConcurrentJoins verifies that simultaneous joins produce one roster
// entry per user id
func TestConcurrentJoins(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	handler := NewWaitingRoomHandler(engine)

	poll := testutil.CreateTestPoll(t, engine, models.SettingsInput{})

	numUsers := 25
	var wg sync.WaitGroup
	var successCount atomic.Int32

	// Every user joins twice.
	for i := 0; i < numUsers*2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			body := models.JoinWaitingRoomRequest{
				UserID: fmt.Sprintf("user-%d", idx%numUsers),
				Name:   fmt.Sprintf("User %d", idx%numUsers),
			}
			req := testutil.MakeRequest("POST", "/api/polls/"+poll.ID+"/join", body, nil)
			req.SetPathValue("id", poll.ID)
			w := httptest.NewRecorder()
			handler.Join(w, req)
			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numUsers*2 {
		t.Errorf("Expected all %d joins to succeed, got %d", numUsers*2, successCount.Load())
	}

	list, err := engine.ListParticipants(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("ListParticipants() error = %v", err)
	}
	if list.Count != numUsers {
		t.Errorf("Expected %d participants, got %d", numUsers, list.Count)
	}
	got, _ := engine.GetPoll(context.Background(), poll.ID)
	if got.ParticipantCount != numUsers {
		t.Errorf("Expected participantCount %d, got %d", numUsers, got.ParticipantCount)
	}
}

// TestConcurrentPollClose verifies that only one of several simultaneous
// close requests succeeds
func TestConcurrentPollClose(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	cfg := testutil.GetTestConfig()
	pollHandler := NewPollHandler(engine, cfg)

	poll := testutil.CreateActivePoll(t, engine, models.SettingsInput{DurationMinutes: testutil.IntPtr(10)})
	adminKey := auth.GenerateAdminKey(poll.ID, cfg.AdminKeySalt)

	numAttempts := 5
	var successCount, conflictCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/api/polls/"+poll.ID+"/close", nil, map[string]string{"X-Admin-Key": adminKey})
			req.SetPathValue("id", poll.ID)
			w := httptest.NewRecorder()
			pollHandler.ClosePoll(w, req)

			switch w.Code {
			case http.StatusOK:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful close, got %d", successCount.Load())
	}
	if int(conflictCount.Load()) != numAttempts-1 {
		t.Errorf("Expected %d conflicts, got %d", numAttempts-1, conflictCount.Load())
	}
	if n := engine.PendingTimers(); n != 0 {
		t.Errorf("Expected auto-close timer to be cancelled, %d pending", n)
	}
}

// TestConcurrentVotesAndClose verifies that votes racing a close are either
// counted in the final tallies or rejected, never lost
func TestConcurrentVotesAndClose(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	votingHandler := NewVotingHandler(engine)
	ctx := context.Background()

	poll := testutil.CreateActivePoll(t, engine, models.SettingsInput{})

	numVoters := 40
	var accepted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := submitVote(votingHandler, poll.ID, models.SubmitVoteRequest{
				VoterID:   fmt.Sprintf("voter-%d", idx),
				OptionIDs: []int{0},
			})
			if w.Code == http.StatusOK {
				accepted.Add(1)
			}
		}(i)
	}

	var closed models.Poll
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		closed, err = engine.ClosePoll(ctx, poll.ID)
		if err != nil {
			t.Errorf("ClosePoll() error = %v", err)
		}
	}()

	wg.Wait()

	final, _ := engine.GetPoll(ctx, poll.ID)
	if final.TotalVotes != int(accepted.Load()) {
		t.Errorf("Expected %d accepted votes in final tallies, got %d", accepted.Load(), final.TotalVotes)
	}
	if closed.TotalVotes != final.TotalVotes {
		t.Errorf("Close result has %d votes but poll has %d", closed.TotalVotes, final.TotalVotes)
	}
}

// TestConcurrentRevotes verifies that tallies stay consistent while every
// voter changes their ballot repeatedly
func TestConcurrentRevotes(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	votingHandler := NewVotingHandler(engine)

	poll := testutil.CreateActivePoll(t, engine, models.SettingsInput{AllowRevote: true, MultipleChoice: true}, "A", "B", "C", "D")

	numVoters := 10
	rounds := 15
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				options := []int{(idx + r) % 4}
				if r%2 == 1 {
					options = append(options, (idx+r+1)%4)
				}
				w := submitVote(votingHandler, poll.ID, models.SubmitVoteRequest{
					VoterID:   fmt.Sprintf("voter-%d", idx),
					OptionIDs: options,
				})
				if w.Code != http.StatusOK {
					t.Errorf("voter %d round %d: status %d", idx, r, w.Code)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	got, _ := engine.GetPoll(context.Background(), poll.ID)
	if got.TotalVotes != numVoters {
		t.Errorf("Expected %d voters, got %d", numVoters, got.TotalVotes)
	}

	// The last round (r = rounds-1, even) left one selection per voter.
	sum := 0
	for _, opt := range got.Options {
		sum += opt.Votes
	}
	if sum != numVoters {
		t.Errorf("Expected %d selections after the final round, got %d", numVoters, sum)
	}
}

// TestParallelPolls verifies that activity on separate polls does not
// interfere
func TestParallelPolls(t *testing.T) {
	engine, _ := testutil.SetupTestEngine(t)
	votingHandler := NewVotingHandler(engine)

	numPolls := 5
	votersPerPoll := 8
	polls := make([]models.Poll, numPolls)
	for i := range polls {
		polls[i] = testutil.CreateActivePoll(t, engine, models.SettingsInput{})
	}

	var wg sync.WaitGroup
	for p := 0; p < numPolls; p++ {
		for v := 0; v < votersPerPoll; v++ {
			wg.Add(1)
			go func(pollIdx, voterIdx int) {
				defer wg.Done()
				w := submitVote(votingHandler, polls[pollIdx].ID, models.SubmitVoteRequest{
					VoterID:   fmt.Sprintf("voter-%d", voterIdx),
					OptionIDs: []int{pollIdx % 3},
				})
				if w.Code != http.StatusOK {
					t.Errorf("poll %d voter %d: status %d", pollIdx, voterIdx, w.Code)
				}
			}(p, v)
		}
	}

	wg.Wait()

	for i, poll := range polls {
		got, _ := engine.GetPoll(context.Background(), poll.ID)
		if got.TotalVotes != votersPerPoll {
			t.Errorf("poll %d: expected %d voters, got %d", i, votersPerPoll, got.TotalVotes)
		}
		if got.Options[i%3].Votes != votersPerPoll {
			t.Errorf("poll %d: expected %d votes on option %d, got %d", i, votersPerPoll, i%3, got.Options[i%3].Votes)
		}
	}
}
