// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package waitingroom keeps the ordered roster of participants for each poll.
package waitingroom

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/apperrors"
	"github.com/danielhkuo/livepoll/models"
)

// Registry owns one roster per poll. Rosters are unique by user id and keep
// join order.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	mu           sync.RWMutex
	participants []models.Participant
	index        map[string]int // user id -> position in participants
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Open creates an empty roster for pollID. Opening an existing roster is a
// no-op.
func (r *Registry) Open(pollID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[pollID]; ok {
		return
	}
	r.rooms[pollID] = &room{index: make(map[string]int)}
}

func (r *Registry) room(pollID string) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[pollID]
	return rm, ok
}

// Join adds a participant to the poll's roster. Rejoining with a known user
// id returns the original entry unchanged with created set to false. The
// returned roster is a snapshot taken after the join.
func (r *Registry) Join(pollID, userID, name string, now time.Time) (p models.Participant, created bool, roster []models.Participant, err error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" {
		return models.Participant{}, false, nil, apperrors.InvalidInput("userId is required")
	}
	if name == "" {
		return models.Participant{}, false, nil, apperrors.InvalidInput("name is required")
	}

	rm, ok := r.room(pollID)
	if !ok {
		return models.Participant{}, false, nil, apperrors.PollNotFound(pollID)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if i, exists := rm.index[userID]; exists {
		return rm.participants[i], false, slices.Clone(rm.participants), nil
	}

	p = models.Participant{UserID: userID, Name: name, JoinedAt: now}
	rm.index[userID] = len(rm.participants)
	rm.participants = append(rm.participants, p)
	return p, true, slices.Clone(rm.participants), nil
}

// List returns the roster in join order. Unknown polls yield an empty roster.
func (r *Registry) List(pollID string) ([]models.Participant, int) {
	rm, ok := r.room(pollID)
	if !ok {
		return []models.Participant{}, 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return slices.Clone(rm.participants), len(rm.participants)
}

// Count returns the roster size.
func (r *Registry) Count(pollID string) int {
	rm, ok := r.room(pollID)
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.participants)
}
