package main

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Simplici0/reprocost/internal/db"
	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/metrics"
	"github.com/Simplici0/reprocost/internal/migrations"
	"github.com/Simplici0/reprocost/internal/records"
	"github.com/Simplici0/reprocost/internal/seed"
)

const (
	testAdminEmail    = "estimator@bowler.co.za"
	testAdminPassword = "s3cret"
	samplePriceList   = "Item,Nett,Gross,Markup\nBoard,100,120,20\nFoil Stamp,0,0,0\nProof,\"1 234,50\",,10\n"
)

var testToday = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *server {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store, err := records.OpenCSV(filepath.Join(dir, "estimates.csv"))
	if err != nil {
		t.Fatalf("open csv store: %v", err)
	}
	v, err := newViews()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	return &server{
		auth:         newAuthService(database, "test-secret"),
		store:        store,
		sessions:     estimate.NewSessions(func() time.Time { return testToday }),
		metrics:      metrics.NewEstimator(prometheus.NewRegistry()),
		views:        v,
		docOptions:   document.Options{CompanyName: "Bowler"},
		company:      "Bowler",
		fetchTimeout: 2 * time.Second,
	}
}

// testClient replays cookies between requests like a browser would.
type testClient struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T, srv *server) *testClient {
	return &testClient{t: t, handler: srv.routes(nil), cookies: make(map[string]*http.Cookie)}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()

	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rr
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *testClient) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) upload(name, content string) *httptest.ResponseRecorder {
	c.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("pricelist", name)
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		c.t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/pricelist/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectBody(t *testing.T, rr *httptest.ResponseRecorder, fragments ...string) {
	t.Helper()
	body := rr.Body.String()
	for _, fragment := range fragments {
		if !strings.Contains(body, fragment) {
			t.Fatalf("expected body to contain %q, got: %s", fragment, body)
		}
	}
}

// scenarioForm fills the job described by the Board/Foil Stamp example.
func scenarioForm() url.Values {
	form := url.Values{}
	form.Set("client", "Acme Foods")
	form.Set("reference", "PP 1042")
	form.Set("description", "Cereal box")
	form.Set("date", "2026-03-14")
	form.Set("foil_c", "50")
	form.Set(quantityField("Board"), "10")
	form.Set(quantityField("Foil Stamp"), "5")
	return form
}

func TestHealthz(t *testing.T) {
	c := newTestClient(t, newTestServer(t))

	rr := c.get("/healthz")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, `"status":"ok"`)
}

func TestReportConfigError(t *testing.T) {
	var out bytes.Buffer
	code := reportConfigError(&out, errors.New(`STORE_BACKEND must be "csv" or "sqlite"`))
	if code != 1 {
		t.Fatalf("exit code=%d, want 1", code)
	}
	if got := out.String(); got != "reprocost: invalid configuration: STORE_BACKEND must be \"csv\" or \"sqlite\"\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
