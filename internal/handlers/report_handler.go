package handlers

import (
	"fmt"
	"net/http"

	"inventar-backend/internal/services"
	"inventar-backend/internal/timeutil"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// GetChangelogPDF handles GET /api/changelog/report.pdf
func (h *ReportHandler) GetChangelogPDF(w http.ResponseWriter, r *http.Request) {
	pdfData, err := h.Service.ChangelogPDF(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("changelog_%s.pdf", timeutil.Now().Format(timeutil.FileLayout))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	_, _ = w.Write(pdfData)
}
