// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/skip2/go-qrcode"

	"github.com/danielhkuo/livepoll/apperrors"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

// qrSize is the edge length in pixels of generated QR images.
const qrSize = 256

type PollHandler struct {
	engine *lifecycle.Engine
	cfg    cliparse.Config
}

func NewPollHandler(engine *lifecycle.Engine, cfg cliparse.Config) *PollHandler {
	return &PollHandler{engine: engine, cfg: cfg}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, err := h.engine.CreatePoll(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	resp := models.CreatePollResponse{PollID: poll.ID, Poll: poll}

	// The poll exists either way; a missing QR image is not worth failing over.
	if png, err := qrcode.Encode(poll.Code, qrcode.Medium, qrSize); err != nil {
		slog.Error("failed to generate QR code", "poll_id", poll.ID, "error", err)
	} else {
		resp.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	if h.cfg.AdminKeysEnabled() {
		resp.AdminKey = auth.GenerateAdminKey(poll.ID, h.cfg.AdminKeySalt)
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.engine.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetPollByCode handles GET /api/codes/{code}
func (h *PollHandler) GetPollByCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	poll, err := h.engine.FindPollByCode(r.Context(), code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// ListPolls handles GET /api/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.engine.ListPolls(r.Context()))
}

// StartPoll handles POST /api/polls/{id}/start
func (h *PollHandler) StartPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !h.authorize(w, r, pollID) {
		return
	}

	poll, err := h.engine.StartPoll(r.Context(), pollID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// ClosePoll handles POST /api/polls/{id}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !h.authorize(w, r, pollID) {
		return
	}

	poll, err := h.engine.ClosePoll(r.Context(), pollID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// QRCode handles GET /api/polls/{id}/qr
func (h *PollHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	poll, err := h.engine.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(poll.Code, qrcode.Medium, qrSize)
	if err != nil {
		middleware.WriteError(w, fmt.Errorf("failed to generate QR code: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		slog.Error("failed to write QR code", "poll_id", poll.ID, "error", err)
	}
}

// authorize checks the X-Admin-Key header when admin keys are enabled.
func (h *PollHandler) authorize(w http.ResponseWriter, r *http.Request, pollID string) bool {
	if !h.cfg.AdminKeysEnabled() {
		return true
	}
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.WriteError(w, apperrors.New(apperrors.CodeUnauthorized, "Invalid admin key"))
		return false
	}
	return true
}
