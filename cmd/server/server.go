package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/metrics"
	"github.com/Simplici0/reprocost/internal/pricelist"
	"github.com/Simplici0/reprocost/internal/records"
	"github.com/Simplici0/reprocost/web"
)

const formCookieName = "reprocost_form"

type server struct {
	auth     *authService
	store    records.Store
	sessions *estimate.Sessions
	metrics  *metrics.Estimator
	views    *views
	log      *zap.Logger

	docOptions document.Options
	company    string

	sheetURL     string
	fetchTimeout time.Duration
	sheets       pricelist.Source

	// exportDocument, when set, receives every rendered document.
	exportDocument func(name string, data []byte)
}

type baseViewData struct {
	Title          string
	Company        string
	Admin          string
	ErrorMessage   string
	SuccessMessage string
	Warnings       []string
}

func (s *server) routes(metricsHandler http.Handler) http.Handler {
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Get("/", s.handleEstimateForm)
	r.Post("/pricelist/upload", s.handlePriceListUpload)
	r.Post("/pricelist/sheet", s.handlePriceListFetch)
	r.Post("/estimate", s.handleEstimateRecalculate)
	r.Post("/estimate/finalize", s.handleEstimateFinalize)
	r.Get("/estimate/pdf", s.handleEstimatePDF)
	r.Post("/estimate/reset", s.handleEstimateReset)

	r.Get("/records", s.handleRecordsList)
	r.Get("/records/export.xlsx", s.handleRecordsExport)
	r.Post("/records/{id}/load", s.handleRecordLoad)
	r.Post("/records/{id}/cancel", s.handleRecordCancel)
	r.Post("/records/{id}/delete", s.handleRecordDelete)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger().Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *server) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

// base fills the fields shared by every page.
func (s *server) base(r *http.Request, title string) baseViewData {
	admin, _ := s.auth.currentUser(r)
	return baseViewData{
		Title:   title,
		Company: s.company,
		Admin:   admin,
	}
}

// formSession runs fn against the caller's form session and keeps the
// session cookie in sync. It must run before anything is written to w.
func (s *server) formSession(w http.ResponseWriter, r *http.Request, fn func(*estimate.Session)) {
	var id string
	if cookie, err := r.Cookie(formCookieName); err == nil {
		id = cookie.Value
	}

	used := s.sessions.Do(id, fn)
	if used != id {
		http.SetCookie(w, &http.Cookie{
			Name:     formCookieName,
			Value:    used,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

type views struct {
	pages map[string]*template.Template
}

func newViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template)}
	for _, page := range []string{"estimate.html", "records.html", "login.html"} {
		t, err := template.ParseFS(web.Templates, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		v.pages[page] = t
	}
	return v, nil
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.views.pages[page]
	if !ok {
		http.Error(w, "unknown template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger().Error("render template failed", zap.String("page", page), zap.Error(err))
	}
}
