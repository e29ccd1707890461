// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/livepoll/apperrors"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/clock"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/telemetry"
	"github.com/danielhkuo/livepoll/waitingroom"
)

// Archiver receives every poll once it closes.
type Archiver interface {
	ArchivePoll(ctx context.Context, poll models.Poll) error
}

// Engine runs the poll state machine. All mutation of polls, ledgers and
// rosters goes through its methods, serialized per poll.
type Engine struct {
	store    *store.Store
	rooms    *waitingroom.Registry
	events   *broadcast.Broadcaster
	clock    clock.Clock
	archiver Archiver
	tracer   trace.Tracer

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	timers   map[string]clock.Timer
	shutdown bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for timestamps and auto-close timers.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithStore replaces the default in-memory poll store.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithBroadcaster sets the event broadcaster.
func WithBroadcaster(b *broadcast.Broadcaster) Option {
	return func(e *Engine) { e.events = b }
}

// WithArchiver records closed polls.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// New creates an engine with fresh state.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:  store.New(),
		rooms:  waitingroom.New(),
		events: broadcast.New(broadcast.DefaultBuffer),
		clock:  clock.Real(),
		tracer: telemetry.Tracer("lifecycle"),
		locks:  make(map[string]*sync.Mutex),
		timers: make(map[string]clock.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Broadcaster returns the broadcaster events are published to.
func (e *Engine) Broadcaster() *broadcast.Broadcaster {
	return e.events
}

// lockPoll acquires the poll's lock. Unknown ids are NOT_FOUND.
func (e *Engine) lockPoll(id string) (unlock func(), err error) {
	e.mu.Lock()
	l, ok := e.locks[id]
	e.mu.Unlock()
	if !ok {
		return nil, apperrors.PollNotFound(id)
	}
	l.Lock()
	return l.Unlock, nil
}

func (e *Engine) startSpan(ctx context.Context, name, pollID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "lifecycle."+name, trace.WithAttributes(attribute.String("poll.id", pollID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreatePoll stores a new waiting poll, opens its waiting room and announces
// it on the global topic.
func (e *Engine) CreatePoll(ctx context.Context, req models.CreatePollRequest) (poll models.Poll, err error) {
	_, span := e.startSpan(ctx, "CreatePoll", "")
	defer func() { endSpan(span, err) }()

	poll, err = e.store.Create(req.Title, req.Options, req.Settings.Resolve(), e.clock.Now())
	if err != nil {
		return models.Poll{}, err
	}
	span.SetAttributes(attribute.String("poll.id", poll.ID))

	e.rooms.Open(poll.ID)

	l := &sync.Mutex{}
	l.Lock()
	e.mu.Lock()
	e.locks[poll.ID] = l
	e.mu.Unlock()
	defer l.Unlock()

	e.events.Publish(broadcast.GlobalTopic, broadcast.EventPollCreated, models.PollCreatedEvent{
		PollID: poll.ID,
		Code:   poll.Code,
		Title:  poll.Title,
	})

	slog.Info("poll created", "poll_id", poll.ID, "code", poll.Code, "options", len(poll.Options))
	return poll, nil
}

// GetPoll returns the current snapshot of a poll.
func (e *Engine) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	return e.store.Get(id)
}

// FindPollByCode resolves a join code, ignoring case.
func (e *Engine) FindPollByCode(ctx context.Context, code string) (models.Poll, error) {
	return e.store.FindByCode(code)
}

// ListPolls returns every poll, newest first.
func (e *Engine) ListPolls(ctx context.Context) []models.Poll {
	polls := e.store.List()
	slices.Reverse(polls)
	return polls
}

// JoinWaitingRoom adds a participant to a poll's roster. Rejoining returns the
// existing entry and publishes nothing.
func (e *Engine) JoinWaitingRoom(ctx context.Context, pollID, userID, name string) (p models.Participant, err error) {
	_, span := e.startSpan(ctx, "JoinWaitingRoom", pollID)
	defer func() { endSpan(span, err) }()

	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Participant{}, err
	}
	defer unlock()

	p, created, roster, err := e.rooms.Join(pollID, userID, name, e.clock.Now())
	if err != nil {
		return models.Participant{}, err
	}
	if !created {
		return p, nil
	}

	if _, err := e.store.SetParticipantCount(pollID, len(roster)); err != nil {
		return models.Participant{}, err
	}

	e.events.Publish(broadcast.PollTopic(pollID), broadcast.EventWaitingRoomUpdated, models.WaitingRoomEvent{
		PollID:       pollID,
		Participants: roster,
		Count:        len(roster),
	})

	slog.Info("participant joined", "poll_id", pollID, "user_id", p.UserID, "count", len(roster))
	return p, nil
}

// ListParticipants returns the poll's roster in join order.
func (e *Engine) ListParticipants(ctx context.Context, pollID string) (models.ParticipantList, error) {
	if _, err := e.store.Get(pollID); err != nil {
		return models.ParticipantList{}, err
	}
	participants, count := e.rooms.List(pollID)
	return models.ParticipantList{Participants: participants, Count: count}, nil
}

// StartPoll opens voting. When the poll has a duration an auto-close timer is
// armed for its end time.
func (e *Engine) StartPoll(ctx context.Context, pollID string) (poll models.Poll, err error) {
	_, span := e.startSpan(ctx, "StartPoll", pollID)
	defer func() { endSpan(span, err) }()

	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	current, err := e.store.Get(pollID)
	if err != nil {
		return models.Poll{}, err
	}

	now := e.clock.Now()
	d := current.Settings.Duration()
	var end *time.Time
	if d > 0 {
		t := now.Add(d)
		end = &t
	}

	poll, err = e.store.MarkActive(pollID, now, end)
	if err != nil {
		return models.Poll{}, err
	}

	if end != nil {
		e.arm(pollID, d)
		slog.Info("poll started", "poll_id", pollID, "closes", humanize.Time(*end), "duration", d)
	} else {
		slog.Info("poll started", "poll_id", pollID)
	}

	e.events.Publish(broadcast.PollTopic(pollID), broadcast.EventPollStarted, poll)
	return poll, nil
}

func (e *Engine) arm(pollID string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return
	}
	e.timers[pollID] = e.clock.AfterFunc(d, func() { e.autoClose(pollID) })
}

func (e *Engine) disarm(pollID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[pollID]; ok {
		t.Stop()
		delete(e.timers, pollID)
	}
}

// Vote records a ballot and publishes the updated poll.
func (e *Engine) Vote(ctx context.Context, pollID, voterID string, optionIDs []int) (poll models.Poll, err error) {
	_, span := e.startSpan(ctx, "Vote", pollID)
	defer func() { endSpan(span, err) }()

	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	poll, err = e.store.ApplyVote(pollID, voterID, optionIDs)
	if err != nil {
		return models.Poll{}, err
	}

	e.events.Publish(broadcast.PollTopic(pollID), broadcast.EventPollUpdated, poll)
	e.events.Publish(broadcast.GlobalTopic, broadcast.EventPollStats, models.PollStatsEvent{
		PollID:     poll.ID,
		TotalVotes: poll.TotalVotes,
		Options:    poll.Options,
	})

	slog.Debug("vote recorded", "poll_id", pollID, "voter_id", voterID, "total_votes", poll.TotalVotes)
	return poll, nil
}

// ClosePoll ends voting on an active poll and cancels its auto-close timer.
func (e *Engine) ClosePoll(ctx context.Context, pollID string) (poll models.Poll, err error) {
	ctx, span := e.startSpan(ctx, "ClosePoll", pollID)
	defer func() { endSpan(span, err) }()

	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	poll, err = e.closeLocked(pollID, "manual")
	unlock()
	if err != nil {
		return models.Poll{}, err
	}

	e.archive(ctx, poll)
	return poll, nil
}

// autoClose runs when a poll's timer fires. A poll that is no longer active
// is left alone.
func (e *Engine) autoClose(pollID string) {
	ctx, span := e.startSpan(context.Background(), "autoClose", pollID)
	defer span.End()

	e.mu.Lock()
	delete(e.timers, pollID)
	e.mu.Unlock()

	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return
	}
	current, err := e.store.Get(pollID)
	if err != nil || current.Status != models.StatusActive {
		unlock()
		slog.Debug("auto-close skipped", "poll_id", pollID, "status", current.Status)
		return
	}
	poll, err := e.closeLocked(pollID, "timer")
	unlock()
	if err != nil {
		slog.Error("auto-close failed", "poll_id", pollID, "error", err)
		return
	}

	e.archive(ctx, poll)
}

// closeLocked must be called with the poll's lock held.
func (e *Engine) closeLocked(pollID, reason string) (models.Poll, error) {
	poll, err := e.store.MarkClosed(pollID, e.clock.Now())
	if err != nil {
		return models.Poll{}, err
	}
	e.disarm(pollID)

	e.events.Publish(broadcast.PollTopic(pollID), broadcast.EventPollClosed, poll)

	attrs := []any{"poll_id", pollID, "reason", reason, "total_votes", poll.TotalVotes}
	if leader, ok := poll.Leading(); ok && poll.TotalVotes > 0 {
		attrs = append(attrs, "leading", leader.Text)
	}
	slog.Info("poll closed", attrs...)
	return poll, nil
}

func (e *Engine) archive(ctx context.Context, poll models.Poll) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.ArchivePoll(ctx, poll); err != nil {
		slog.Error("failed to archive poll", "poll_id", poll.ID, "error", err)
	}
}

// Subscribe attaches sub to the poll's topic and queues a poll-data snapshot
// for it. The snapshot is taken under the poll's lock, so it precedes every
// event sub receives for the poll and reflects all events before it.
func (e *Engine) Subscribe(ctx context.Context, sub *broadcast.Subscription, pollID string) (models.Poll, error) {
	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	poll, err := e.store.Get(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	e.events.Subscribe(sub, broadcast.PollTopic(pollID))
	e.events.Send(sub, broadcast.PollTopic(pollID), broadcast.EventPollData, poll)
	return poll, nil
}

// Refresh queues a fresh poll-data snapshot for sub, ordered with the poll's
// events.
func (e *Engine) Refresh(ctx context.Context, sub *broadcast.Subscription, pollID string) (models.Poll, error) {
	unlock, err := e.lockPoll(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	poll, err := e.store.Get(pollID)
	if err != nil {
		return models.Poll{}, err
	}
	e.events.Send(sub, broadcast.PollTopic(pollID), broadcast.EventPollData, poll)
	return poll, nil
}

// Unsubscribe detaches sub from the poll's topic.
func (e *Engine) Unsubscribe(sub *broadcast.Subscription, pollID string) {
	e.events.Unsubscribe(sub, broadcast.PollTopic(pollID))
}

// Shutdown stops every pending auto-close timer. Polls stay in whatever state
// they are in.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown = true
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}

// PendingTimers reports how many auto-close timers are armed.
func (e *Engine) PendingTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}
