// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

type VotingHandler struct {
	engine *lifecycle.Engine
}

func NewVotingHandler(engine *lifecycle.Engine) *VotingHandler {
	return &VotingHandler{engine: engine}
}

// SubmitVote handles POST /api/polls/{id}/vote
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := h.engine.Vote(r.Context(), pollID, req.VoterID, req.OptionIDs); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitVoteResponse{
		Accepted: true,
		Message:  "Vote recorded",
	})
}
