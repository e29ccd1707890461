// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

// ArchiveReader lists archived results.
type ArchiveReader interface {
	ListArchived(ctx context.Context, limit int) ([]models.ArchivedPoll, error)
}

type ArchiveHandler struct {
	archive ArchiveReader
}

// NewArchiveHandler accepts a nil archive, in which case the list is always
// empty.
func NewArchiveHandler(archive ArchiveReader) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// ListArchived handles GET /api/archive
func (h *ArchiveHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if h.archive == nil {
		middleware.JSONResponse(w, http.StatusOK, []models.ArchivedPoll{})
		return
	}

	polls, err := h.archive.ListArchived(r.Context(), limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, polls)
}
