package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/records"
)

const (
	recordsTitle = "Records"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type recordListItem struct {
	ID          int64
	Status      estimate.Status
	Client      string
	Reference   string
	Description string
	Date        string
	GrandTotal  string
	Cancelled   bool
}

type recordsViewData struct {
	baseViewData
	Query   string
	Records []recordListItem
}

func (s *server) handleRecordsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	base := s.base(r, recordsTitle)
	base.ErrorMessage = r.URL.Query().Get("error")
	base.SuccessMessage = r.URL.Query().Get("success")

	recs, err := s.store.Search(r.Context(), query)
	if err != nil {
		s.logger().Error("search records failed", zap.Error(err))
		base.ErrorMessage = "Saved estimates could not be loaded."
		s.renderTemplate(w, http.StatusInternalServerError, "records.html", recordsViewData{baseViewData: base, Query: query})
		return
	}

	s.renderTemplate(w, http.StatusOK, "records.html", recordsViewData{
		baseViewData: base,
		Query:        query,
		Records:      listItems(recs),
	})
}

func listItems(recs []records.Record) []recordListItem {
	items := make([]recordListItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, recordListItem{
			ID:          rec.ID,
			Status:      rec.Status,
			Client:      rec.Client,
			Reference:   rec.Reference,
			Description: rec.Description,
			Date:        rec.Date,
			GrandTotal:  document.Amount(rec.GrandTotal),
			Cancelled:   rec.Status == estimate.StatusCancelled,
		})
	}
	return items
}

func (s *server) handleRecordsExport(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	recs, err := s.store.Search(r.Context(), query)
	if err != nil {
		s.logger().Error("search records failed", zap.Error(err))
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}

	data, err := records.ExportXLSX(recs)
	if err != nil {
		s.logger().Error("export records failed", zap.Error(err))
		http.Error(w, "failed to export records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="estimates.xlsx"`)
	_, _ = w.Write(data)
}

func (s *server) handleRecordLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	fields, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.redirectRecordError(w, r, id, err)
		return
	}

	s.formSession(w, r, func(sess *estimate.Session) {
		sess.Apply(id, fields, s.sessions.Today())
	})
	http.Redirect(w, r, "/?success="+url.QueryEscape(fmt.Sprintf("Loaded estimate #%d.", id)), http.StatusSeeOther)
}

func (s *server) handleRecordCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	if err := s.store.SetStatus(r.Context(), id, estimate.StatusCancelled); err != nil {
		s.redirectRecordError(w, r, id, err)
		return
	}
	s.metrics.IncCancelled()
	s.logger().Info("estimate cancelled", zap.Int64("id", id))

	redirectRecords(w, r, "success", fmt.Sprintf("Estimate #%d marked as cancelled.", id))
}

func (s *server) handleRecordDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.redirectRecordError(w, r, id, err)
		return
	}
	s.metrics.IncDeleted()
	s.logger().Info("estimate deleted", zap.Int64("id", id))

	redirectRecords(w, r, "success", fmt.Sprintf("Estimate #%d deleted.", id))
}

func parseRecordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (s *server) redirectRecordError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, records.ErrNotFound) {
		redirectRecords(w, r, "error", fmt.Sprintf("Estimate #%d no longer exists.", id))
		return
	}
	s.logger().Error("record operation failed", zap.Int64("id", id), zap.Error(err))
	redirectRecords(w, r, "error", fmt.Sprintf("Estimate #%d could not be updated.", id))
}

// redirectRecords returns to the list, keeping the caller's search term.
func redirectRecords(w http.ResponseWriter, r *http.Request, key, message string) {
	values := url.Values{}
	if q := strings.TrimSpace(r.FormValue("q")); q != "" {
		values.Set("q", q)
	}
	values.Set(key, message)
	http.Redirect(w, r, "/records?"+values.Encode(), http.StatusSeeOther)
}
