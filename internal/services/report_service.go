package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"inventar-backend/internal/models"
	"inventar-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ReportService renders the audit trail as PDF
type ReportService struct {
	changelog *ChangelogService
	limit     int
}

func NewReportService(changelog *ChangelogService, limit int) *ReportService {
	if limit <= 0 {
		limit = MaxPageSize
	}
	return &ReportService{changelog: changelog, limit: limit}
}

// ChangelogPDF renders the most recent entries, newest first
func (s *ReportService) ChangelogPDF(ctx context.Context) ([]byte, error) {
	page, err := s.changelog.ListPaginated(ctx, 1, s.limit)
	if err != nil {
		return nil, err
	}
	return renderChangelogPDF(page.Items, page.Total)
}

func renderChangelogPDF(entries []*models.ChangelogView, total int) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "") // Landscape for more columns
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	// core fonts are cp1252; umlauts in names need translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, tr("MakerSpace Bonn Inventar - Änderungsprotokoll"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s  |  %d of %d entries",
		timeutil.Now().Format(timeutil.DisplayLayout), len(entries), total), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	widths := []float64{32, 40, 22, 60, 22, 101}
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		for i, title := range []string{"Time", "User", "Type", "Entity", "Change", "Fields"} {
			pdf.CellFormat(widths[i], 7, title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	for _, e := range entries {
		if pdf.GetY() > 190 {
			pdf.AddPage()
			header()
		}
		user := "-"
		if e.UserName != nil {
			user = *e.UserName
		}
		entity := fmt.Sprintf("#%d %s", e.EntityID, e.EntityName)
		if !e.EntityExists {
			entity += " (gone)"
		}
		cells := []string{
			timeutil.FormatBerlin(e.ChangedAt, timeutil.DisplayLayout),
			truncate(user, 24),
			string(e.EntityType),
			truncate(entity, 38),
			string(e.ChangeType),
			truncate(strings.Join(e.ChangedFields, ", "), 70),
		}
		for i, c := range cells {
			align := "L"
			if i == 2 || i == 4 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
