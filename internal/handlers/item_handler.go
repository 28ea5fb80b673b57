package handlers

import (
	"net/http"
	"strconv"

	"inventar-backend/internal/middleware"
	"inventar-backend/internal/models"
	"inventar-backend/internal/services"
	"inventar-backend/pkg/utils"
)

type ItemHandler struct {
	Service   *services.ItemService
	Changelog *services.ChangelogService
}

func NewItemHandler(s *services.ItemService, changelog *services.ChangelogService) *ItemHandler {
	return &ItemHandler{Service: s, Changelog: changelog}
}

// ListItems handles GET /api/items?q=&tag=&location_id=&limit=&offset=
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ItemFilter{Query: q.Get("q"), Tags: q["tag"]}

	if raw := q.Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "location_id must be a number")
			return
		}
		filter.LocationID = &id
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Service.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Service.Create(r.Context(), &req, middleware.UserIDPtr(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Service.Update(r.Context(), id, &req, middleware.UserIDPtr(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id, middleware.UserIDPtr(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetItemChangelog returns the item's history, newest first. Works for
// deleted items too.
func (h *ItemHandler) GetItemChangelog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := h.Changelog.ListByEntity(r.Context(), models.EntityItem, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, views)
}

func (h *ItemHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Service.Tags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, tags)
}
