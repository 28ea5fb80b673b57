package handlers

import (
	"errors"
	"net/http"

	"inventar-backend/internal/middleware"
	"inventar-backend/internal/models"
	"inventar-backend/internal/services"
	"inventar-backend/internal/store"
	"inventar-backend/pkg/utils"
)

type ChangelogHandler struct {
	Service   *services.ChangelogService
	Undo      *services.UndoService
	Conflicts *services.ConflictDetector
}

func NewChangelogHandler(s *services.ChangelogService, undo *services.UndoService, conflicts *services.ConflictDetector) *ChangelogHandler {
	return &ChangelogHandler{Service: s, Undo: undo, Conflicts: conflicts}
}

// ConflictResponse tells the UI whether an entry can still be undone
type ConflictResponse struct {
	EntryID     int64                 `json:"entry_id"`
	Conflicting bool                  `json:"conflicting"`
	Conflict    *models.ChangelogView `json:"conflict"`
}

// ListChangelog handles GET /api/changelog?page=&page_size=
func (h *ChangelogHandler) ListChangelog(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.Service.ListPaginated(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

func (h *ChangelogHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, view)
}

// GetConflict reports the newest later entry that blocks undoing {id}
func (h *ChangelogHandler) GetConflict(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conflict, err := h.Conflicts.FindConflict(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ConflictResponse{EntryID: id}
	if conflict != nil {
		resp.Conflicting = true
		view, err := h.Service.Get(r.Context(), conflict.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		resp.Conflict = view
	}
	utils.JSON(w, http.StatusOK, resp)
}

// UndoEntry handles POST /api/changelog/{id}/undo
func (h *ChangelogHandler) UndoEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := h.Undo.Undo(r.Context(), id, middleware.UserIDPtr(r.Context()))
	utils.JSON(w, undoStatus(result), result)
}

func undoStatus(result models.UndoResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Reason {
	case models.UndoConflicting:
		return http.StatusConflict
	case models.UndoNotFound:
		return http.StatusNotFound
	case models.UndoEntityGone:
		return http.StatusGone
	case models.UndoNoData, models.UndoUnknownChangeType, models.UndoUnknownEntityType:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
