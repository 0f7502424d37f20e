package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/pricelist"
	"github.com/Simplici0/reprocost/internal/records"
)

const (
	estimateTitle  = "Estimate"
	maxUploadBytes = 10 << 20

	sourceUpload = "upload"
	sourceURL    = "url"
	sourceSheets = "sheets"
)

func (s *server) handleEstimateForm(w http.ResponseWriter, r *http.Request) {
	base := s.base(r, estimateTitle)
	base.SuccessMessage = r.URL.Query().Get("success")

	var data estimateViewData
	s.formSession(w, r, func(sess *estimate.Session) {
		data = s.estimateView(base, sess)
	})
	s.renderTemplate(w, http.StatusOK, "estimate.html", data)
}

func (s *server) handleEstimateRecalculate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	base := s.base(r, estimateTitle)
	var data estimateViewData
	s.formSession(w, r, func(sess *estimate.Session) {
		applyEstimateForm(sess, r.PostForm)
		data = s.estimateView(base, sess)
	})
	s.renderTemplate(w, http.StatusOK, "estimate.html", data)
}

func (s *server) handleEstimateFinalize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	base := s.base(r, estimateTitle)
	status := http.StatusOK
	var data estimateViewData
	s.formSession(w, r, func(sess *estimate.Session) {
		applyEstimateForm(sess, r.PostForm)
		est := sess.Compute()

		if err := estimate.Finalize(est); err != nil {
			var verr *estimate.ValidationError
			if !errors.As(err, &verr) {
				verr = &estimate.ValidationError{Messages: []string{err.Error()}}
			}
			status = http.StatusUnprocessableEntity
			data = s.estimateView(base, sess)
			data.Validation = verr.Messages
			return
		}

		id, err := s.store.Append(r.Context(), records.FromEstimate(est))
		if err != nil {
			s.logger().Error("save estimate failed", zap.Error(err))
			status = http.StatusInternalServerError
			base.ErrorMessage = "The estimate could not be saved. Please try again."
			data = s.estimateView(base, sess)
			return
		}
		s.metrics.IncSaved()
		s.logger().Info("estimate saved", zap.Int64("id", id), zap.String("client", est.Client))

		base.SuccessMessage = fmt.Sprintf("Estimate saved as #%d.", id)
		data = s.estimateView(base, sess)
	})
	s.renderTemplate(w, status, "estimate.html", data)
}

func (s *server) handleEstimatePDF(w http.ResponseWriter, r *http.Request) {
	var est estimate.Estimate
	var sessionID string
	s.formSession(w, r, func(sess *estimate.Session) {
		est = sess.Compute()
		sessionID = sess.ID
	})

	pdf, err := document.Render(est, s.docOptions)
	if err != nil {
		s.logger().Error("render document failed", zap.Error(err))
		base := s.base(r, estimateTitle)
		base.ErrorMessage = "The PDF could not be generated. Please try again."
		var data estimateViewData
		s.sessions.Do(sessionID, func(sess *estimate.Session) {
			data = s.estimateView(base, sess)
		})
		s.renderTemplate(w, http.StatusInternalServerError, "estimate.html", data)
		return
	}
	s.metrics.IncPDF()

	name := document.FileName(est)
	if s.exportDocument != nil {
		s.exportDocument(name, pdf)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func (s *server) handleEstimateReset(w http.ResponseWriter, r *http.Request) {
	s.formSession(w, r, func(sess *estimate.Session) {
		sess.Reset(s.sessions.Today())
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handlePriceListUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.renderPriceListResult(w, r, nil, "", fmt.Errorf("read upload: %w", err))
		return
	}

	file, header, err := r.FormFile("pricelist")
	if err != nil {
		s.renderPriceListResult(w, r, nil, "", fmt.Errorf("no file selected: %w", err))
		return
	}
	defer file.Close()

	var table pricelist.Table
	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		table, err = pricelist.ReadXLSX(file)
	} else {
		table, err = pricelist.ReadCSV(file)
	}
	s.metrics.ObservePriceListLoad(sourceUpload, err)
	if err != nil {
		s.renderPriceListResult(w, r, nil, header.Filename, err)
		return
	}
	s.renderPriceListResult(w, r, pricelist.Load(table), header.Filename, nil)
}

func (s *server) handlePriceListFetch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// Only the configured export endpoint is ever fetched.
	kind, label := sourceURL, s.sheetURL
	var src pricelist.Source
	if r.FormValue("source") == sourceSheets && s.sheets != nil {
		kind, src, label = sourceSheets, s.sheets, "Google Sheets"
	} else {
		src = pricelist.NewFetcher(s.sheetURL, s.fetchTimeout)
	}

	table, err := src.Fetch(r.Context())
	s.metrics.ObservePriceListLoad(kind, err)
	if err != nil {
		s.renderPriceListResult(w, r, nil, label, err)
		return
	}
	s.renderPriceListResult(w, r, pricelist.Load(table), label, nil)
}

// renderPriceListResult installs the loaded items into the session. A failed
// load leaves the session with an empty list and a warning.
func (s *server) renderPriceListResult(w http.ResponseWriter, r *http.Request, items []pricelist.Item, source string, loadErr error) {
	base := s.base(r, estimateTitle)
	switch {
	case loadErr != nil:
		s.logger().Warn("price list unavailable", zap.String("source", source), zap.Error(loadErr))
		base.Warnings = append(base.Warnings, priceListWarning(loadErr))
	case len(items) == 0:
		base.Warnings = append(base.Warnings, "The price list has no usable items.")
	default:
		base.SuccessMessage = fmt.Sprintf("Loaded %d items.", len(items))
	}

	var data estimateViewData
	s.formSession(w, r, func(sess *estimate.Session) {
		sess.SetPriceList(items, source)
		data = s.estimateView(base, sess)
	})
	s.renderTemplate(w, http.StatusOK, "estimate.html", data)
}

func priceListWarning(err error) string {
	switch {
	case errors.Is(err, pricelist.ErrSheetPrivate):
		return "Could not load the spreadsheet. Make sure it is shared as 'Anyone with the link can view'."
	case errors.Is(err, pricelist.ErrEmptySource):
		return "The price list file is empty."
	default:
		return "Could not read the price list: " + err.Error()
	}
}
