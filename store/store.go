// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/apperrors"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
)

// maxCodeAttempts bounds retries when a generated join code is already taken.
const maxCodeAttempts = 16

// CodeGenerator produces candidate join codes.
type CodeGenerator func() (string, error)

// Store owns poll records and their vote ledgers.
//
// The index map is guarded by mu; each record carries its own lock so that
// reads and votes on different polls never contend beyond the index lookup.
type Store struct {
	mu      sync.RWMutex
	polls   map[string]*record
	byCode  map[string]string // normalized code -> poll id
	order   []string          // creation order
	newID   func() string
	newCode CodeGenerator
}

type record struct {
	mu         sync.RWMutex
	poll       models.Poll
	ledger     map[string][]int // voter id -> sorted ballot
	selections int              // sum of ballot sizes across the ledger
}

// Option configures a Store.
type Option func(*Store)

// WithCodeGenerator overrides join code generation.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Store) { s.newCode = gen }
}

// WithIDGenerator overrides poll id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		polls:  make(map[string]*record),
		byCode: make(map[string]string),
		newID:  auth.NewPollID,
		newCode: func() (string, error) {
			return auth.GeneratePollCode(auth.DefaultCodeLength)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates input and stores a new poll in the waiting state.
func (s *Store) Create(title string, options []string, settings models.Settings, now time.Time) (models.Poll, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Poll{}, apperrors.InvalidInput("title is required")
	}

	var opts []models.Option
	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		opts = append(opts, models.Option{ID: len(opts), Text: text})
	}
	if len(opts) < 2 {
		return models.Poll{}, apperrors.InvalidInput("at least 2 non-empty options are required")
	}

	if settings.DurationMinutes != nil && *settings.DurationMinutes <= 0 {
		return models.Poll{}, apperrors.InvalidInput("durationMinutes must be a positive number of minutes")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCode()
	if err != nil {
		return models.Poll{}, err
	}

	poll := models.Poll{
		ID:        s.newID(),
		Code:      code,
		Title:     title,
		Options:   opts,
		Settings:  settings,
		Status:    models.StatusWaiting,
		CreatedAt: now,
	}
	poll = poll.Clone()

	s.polls[poll.ID] = &record{poll: poll, ledger: make(map[string][]int)}
	s.byCode[code] = poll.ID
	s.order = append(s.order, poll.ID)

	return poll.Clone(), nil
}

// uniqueCode must be called with s.mu held.
func (s *Store) uniqueCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate poll code: %w", err)
		}
		code = auth.NormalizeCode(code)
		if _, taken := s.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free poll code after %d attempts", maxCodeAttempts)
}

func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.polls[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.PollNotFound(id)
	}
	return rec, nil
}

// Get returns a snapshot of the poll.
func (s *Store) Get(id string) (models.Poll, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Poll{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.poll.Clone(), nil
}

// FindByCode looks a poll up by its join code, ignoring case.
func (s *Store) FindByCode(code string) (models.Poll, error) {
	s.mu.RLock()
	id, ok := s.byCode[auth.NormalizeCode(code)]
	s.mu.RUnlock()
	if !ok {
		return models.Poll{}, apperrors.PollNotFound(code)
	}
	return s.Get(id)
}

// List returns snapshots of every poll in creation order.
func (s *Store) List() []models.Poll {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.order))
	for _, id := range s.order {
		recs = append(recs, s.polls[id])
	}
	s.mu.RUnlock()

	polls := make([]models.Poll, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		polls = append(polls, rec.poll.Clone())
		rec.mu.RUnlock()
	}
	return polls
}

// Ballot returns the voter's current selection, if any.
func (s *Store) Ballot(pollID, voterID string) ([]int, bool, error) {
	rec, err := s.lookup(pollID)
	if err != nil {
		return nil, false, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	ballot, ok := rec.ledger[voterID]
	return slices.Clone(ballot), ok, nil
}

// ApplyVote records a ballot for voterID, replacing any previous one.
//
// Unknown option ids are ignored and duplicates collapse. A ballot with no
// known options is accepted without touching the ledger. On error nothing
// is modified.
func (s *Store) ApplyVote(pollID, voterID string, optionIDs []int) (models.Poll, error) {
	rec, err := s.lookup(pollID)
	if err != nil {
		return models.Poll{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	p := &rec.poll
	if p.Status != models.StatusActive {
		return models.Poll{}, apperrors.WithMetadata(apperrors.CodePollNotActive, "Poll is not active",
			map[string]string{"poll_id": pollID, "status": p.Status})
	}
	if strings.TrimSpace(voterID) == "" {
		return models.Poll{}, apperrors.InvalidInput("voterId is required")
	}
	if len(optionIDs) == 0 {
		return models.Poll{}, apperrors.InvalidInput("optionIds cannot be empty")
	}

	previous, hasVoted := rec.ledger[voterID]
	if hasVoted && !p.Settings.AllowRevote {
		return models.Poll{}, apperrors.WithMetadata(apperrors.CodeDuplicateVoteRejected, "You have already voted",
			map[string]string{"poll_id": pollID})
	}

	ballot := normalizeBallot(optionIDs, len(p.Options))
	if len(ballot) > 1 && !p.Settings.MultipleChoice {
		return models.Poll{}, apperrors.InvalidInput("this poll accepts a single option")
	}
	if len(ballot) == 0 {
		return p.Clone(), nil
	}

	// Nothing below can fail, so the reversal is never left half-applied.
	for _, id := range previous {
		p.Options[id].Votes--
	}
	rec.selections -= len(previous)

	for _, id := range ballot {
		p.Options[id].Votes++
	}
	rec.selections += len(ballot)
	rec.ledger[voterID] = ballot

	if !hasVoted {
		p.TotalVotes++
	}

	rec.assertTallies()
	return p.Clone(), nil
}

// MarkActive moves a waiting poll to active.
func (s *Store) MarkActive(id string, startedAt time.Time, endTime *time.Time) (models.Poll, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Poll{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.poll.Status != models.StatusWaiting {
		return models.Poll{}, apperrors.WithMetadata(apperrors.CodeInvalidState, "Poll is not in waiting state",
			map[string]string{"poll_id": id, "status": rec.poll.Status})
	}
	rec.poll.Status = models.StatusActive
	rec.poll.StartedAt = &startedAt
	if endTime != nil {
		end := *endTime
		rec.poll.EndTime = &end
	}
	return rec.poll.Clone(), nil
}

// MarkClosed moves an active poll to closed.
func (s *Store) MarkClosed(id string, closedAt time.Time) (models.Poll, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Poll{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.poll.Status != models.StatusActive {
		return models.Poll{}, apperrors.WithMetadata(apperrors.CodeInvalidState, "Poll is not active",
			map[string]string{"poll_id": id, "status": rec.poll.Status})
	}
	rec.poll.Status = models.StatusClosed
	rec.poll.ClosedAt = &closedAt
	return rec.poll.Clone(), nil
}

// SetParticipantCount records the current waiting room size.
func (s *Store) SetParticipantCount(id string, count int) (models.Poll, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Poll{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.poll.ParticipantCount = count
	return rec.poll.Clone(), nil
}

// normalizeBallot drops unknown indices and duplicates and sorts the rest.
func normalizeBallot(optionIDs []int, optionCount int) []int {
	ballot := make([]int, 0, len(optionIDs))
	for _, id := range optionIDs {
		if id < 0 || id >= optionCount || slices.Contains(ballot, id) {
			continue
		}
		ballot = append(ballot, id)
	}
	slices.Sort(ballot)
	return ballot
}

// assertTallies panics when the ledger and the tallies disagree. Must be
// called with rec.mu held.
func (rec *record) assertTallies() {
	if rec.poll.TotalVotes != len(rec.ledger) {
		panic(fmt.Sprintf("store: poll %s totalVotes=%d but ledger has %d voters",
			rec.poll.ID, rec.poll.TotalVotes, len(rec.ledger)))
	}
	sum := 0
	for _, opt := range rec.poll.Options {
		if opt.Votes < 0 {
			panic(fmt.Sprintf("store: poll %s option %d has negative votes", rec.poll.ID, opt.ID))
		}
		sum += opt.Votes
	}
	if sum != rec.selections {
		panic(fmt.Sprintf("store: poll %s option votes sum to %d but ballots hold %d selections",
			rec.poll.ID, sum, rec.selections))
	}
}
