// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

type WaitingRoomHandler struct {
	engine *lifecycle.Engine
}

func NewWaitingRoomHandler(engine *lifecycle.Engine) *WaitingRoomHandler {
	return &WaitingRoomHandler{engine: engine}
}

// Join handles POST /api/polls/{id}/join
func (h *WaitingRoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.JoinWaitingRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	participant, err := h.engine.JoinWaitingRoom(r.Context(), r.PathValue("id"), req.UserID, req.Name)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, participant)
}

// ListParticipants handles GET /api/polls/{id}/participants
func (h *WaitingRoomHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListParticipants(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}
