package handlers

import (
	"fmt"
	"net/http"

	"inventar-backend/internal/services"
	"inventar-backend/pkg/utils"

	log "github.com/sirupsen/logrus"
)

type BackupHandler struct {
	Service *services.BackupService
}

func NewBackupHandler(s *services.BackupService) *BackupHandler {
	return &BackupHandler{Service: s}
}

// Download streams a fresh zip archive
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.Service.FileName()))
	if err := h.Service.Export(r.Context(), w); err != nil {
		// headers are gone once the first zip bytes are out
		log.WithError(err).WithField("component", "backup").Error("backup download aborted")
	}
}

func (h *BackupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.Upload(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, info)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, infos)
}
