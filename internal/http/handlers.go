package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"finansije/internal/core"
	applog "finansije/internal/log"
	"finansije/internal/report"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	t, err := s.svc.Create(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := core.ParseListQuery(r.URL.Query())

	page, err := s.svc.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Transactions:      toTransactionsJSON(page.Items),
		CurrentPage:       page.CurrentPage,
		TotalPages:        page.TotalPages,
		TotalTransactions: page.Total,
		SearchQuery:       q.Search,
		SortBy:            q.SortBy,
		SortOrder:         q.SortOrder,
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing transaction id")
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, applog.OpDelete)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Transakcija obrisana"})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	m, err := core.ParseMonth(r.PathValue("month"), r.PathValue("year"))
	if err != nil {
		writeServiceError(w, r, err, applog.OpSummary)
		return
	}
	sum, err := s.svc.MonthlySummary(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, err, applog.OpSummary)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Income:       sum.Income,
		Expense:      sum.Expense,
		Transactions: toTransactionsJSON(sum.Transactions),
	})
}

func (s *Server) handleMonthlySummaryPDF(w http.ResponseWriter, r *http.Request) {
	s.renderReport(w, r, "application/pdf", "pdf", true, report.Document.WritePDF)
}

func (s *Server) handleMonthlySummaryHTML(w http.ResponseWriter, r *http.Request) {
	s.renderReport(w, r, "text/html; charset=utf-8", "html", false, report.Document.WriteHTML)
}

// renderReport buffers the whole document so a rendering failure still gets
// a clean error response.
func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, contentType, ext string, attachment bool,
	render func(report.Document, io.Writer) error) {
	m, err := core.ParseMonth(r.PathValue("month"), r.PathValue("year"))
	if err != nil {
		writeServiceError(w, r, err, applog.OpRender)
		return
	}
	doc, err := s.svc.MonthlyReport(r.Context(), m)
	if err != nil {
		writeServiceError(w, r, err, applog.OpRender)
		return
	}

	var buf bytes.Buffer
	if err := render(doc, &buf); err != nil {
		writeServiceError(w, r, err, applog.OpRender)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment {
		w.Header().Set("Content-Disposition", "attachment; filename="+doc.Filename(ext))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
