package models

import (
	"slices"
	"time"
)

// Poll status constants
const (
	StatusWaiting = "waiting"
	StatusActive  = "active"
	StatusClosed  = "closed"
)

// Request types

// SettingsInput mirrors Settings but keeps optional fields as pointers so
// defaults can be applied (showResults is on unless explicitly disabled).
type SettingsInput struct {
	MultipleChoice       bool  `json:"multipleChoice"`
	ShowResults          *bool `json:"showResults,omitempty"`
	AllowRevote          bool  `json:"allowRevote"`
	DurationMinutes      *int  `json:"durationMinutes,omitempty"`
	ShowResultsBeforeEnd bool  `json:"showResultsBeforeEnd"`
}

// Resolve applies defaults and returns the stored settings.
func (in SettingsInput) Resolve() Settings {
	showResults := true
	if in.ShowResults != nil {
		showResults = *in.ShowResults
	}
	var duration *int
	if in.DurationMinutes != nil {
		d := *in.DurationMinutes
		duration = &d
	}
	return Settings{
		MultipleChoice:       in.MultipleChoice,
		ShowResults:          showResults,
		AllowRevote:          in.AllowRevote,
		DurationMinutes:      duration,
		ShowResultsBeforeEnd: in.ShowResultsBeforeEnd,
	}
}

type CreatePollRequest struct {
	Title    string        `json:"title"`
	Options  []string      `json:"options"`
	Settings SettingsInput `json:"settings"`
}

type JoinWaitingRoomRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type SubmitVoteRequest struct {
	VoterID   string `json:"voterId"`
	OptionIDs []int  `json:"optionIds"`
}

// Response types

type CreatePollResponse struct {
	PollID string `json:"pollId"`
	Poll
	QRCode   string `json:"qrCode,omitempty"`   // PNG data URL of the poll code
	AdminKey string `json:"adminKey,omitempty"` // only when admin keys are enabled
}

type SubmitVoteResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type ParticipantList struct {
	Participants []Participant `json:"participants"`
	Count        int           `json:"count"`
}

// Event payloads

// PollCreatedEvent is announced on the global topic.
type PollCreatedEvent struct {
	PollID string `json:"pollId"`
	Code   string `json:"code"`
	Title  string `json:"title"`
}

// WaitingRoomEvent is published on a poll topic after every new join.
type WaitingRoomEvent struct {
	PollID       string        `json:"pollId"`
	Participants []Participant `json:"participants"`
	Count        int           `json:"count"`
}

// PollStatsEvent is announced on the global topic after every vote.
type PollStatsEvent struct {
	PollID     string   `json:"pollId"`
	TotalVotes int      `json:"totalVotes"`
	Options    []Option `json:"options"`
}

// Domain types

type Settings struct {
	MultipleChoice       bool `json:"multipleChoice"`
	ShowResults          bool `json:"showResults"`
	AllowRevote          bool `json:"allowRevote"`
	DurationMinutes      *int `json:"durationMinutes,omitempty"`
	ShowResultsBeforeEnd bool `json:"showResultsBeforeEnd"`
}

// Duration returns the auto-close duration, or zero when none is set.
func (s Settings) Duration() time.Duration {
	if s.DurationMinutes == nil || *s.DurationMinutes <= 0 {
		return 0
	}
	return time.Duration(*s.DurationMinutes) * time.Minute
}

// Option identity is its index in Poll.Options.
type Option struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Title            string     `json:"title"`
	Options          []Option   `json:"options"`
	Settings         Settings   `json:"settings"`
	Status           string     `json:"status"`
	TotalVotes       int        `json:"totalVotes"`
	ParticipantCount int        `json:"participantCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	ClosedAt         *time.Time `json:"closedAt,omitempty"`
}

// Clone returns a deep copy safe to hand out of a lock.
func (p Poll) Clone() Poll {
	c := p
	c.Options = slices.Clone(p.Options)
	if p.Settings.DurationMinutes != nil {
		d := *p.Settings.DurationMinutes
		c.Settings.DurationMinutes = &d
	}
	c.StartedAt = cloneTime(p.StartedAt)
	c.EndTime = cloneTime(p.EndTime)
	c.ClosedAt = cloneTime(p.ClosedAt)
	return c
}

// Leading returns the option with the most votes. Ties go to the option
// defined first. ok is false when the poll has no options.
func (p Poll) Leading() (Option, bool) {
	ranked := RankOptions(p.Options)
	if len(ranked) == 0 {
		return Option{}, false
	}
	return ranked[0], true
}

// RankOptions orders options by votes descending, then by index ascending.
// The input is not modified.
func RankOptions(options []Option) []Option {
	ranked := slices.Clone(options)
	slices.SortStableFunc(ranked, func(a, b Option) int {
		if a.Votes != b.Votes {
			return b.Votes - a.Votes
		}
		return a.ID - b.ID
	})
	return ranked
}

type Participant struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Archive types

type ArchivedOption struct {
	OptionID int    `json:"optionId"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
	Rank     int    `json:"rank"` // 1-indexed ranking
}

type ArchivedPoll struct {
	PollID           string           `json:"pollId"`
	Code             string           `json:"code"`
	Title            string           `json:"title"`
	TotalVotes       int              `json:"totalVotes"`
	ParticipantCount int              `json:"participantCount"`
	CreatedAt        time.Time        `json:"createdAt"`
	ClosedAt         time.Time        `json:"closedAt"`
	Results          []ArchivedOption `json:"results"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
