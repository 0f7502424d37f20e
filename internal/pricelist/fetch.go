package pricelist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrSheetPrivate is returned when a spreadsheet export URL answers with a
// sign-in page instead of CSV data.
var ErrSheetPrivate = errors.New("spreadsheet is private or unreachable")

// Source yields a raw price list table.
type Source interface {
	Fetch(ctx context.Context) (Table, error)
}

// Fetcher downloads a price list from a tabular export endpoint. It makes a
// single attempt per call and does not cache the last good list.
type Fetcher struct {
	httpClient *resty.Client
	url        string
}

// NewFetcher builds a Fetcher for the given CSV export URL.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Accept", "text/csv")

	return &Fetcher{httpClient: client, url: url}
}

// Fetch performs the GET and parses the body as CSV.
func (f *Fetcher) Fetch(ctx context.Context) (Table, error) {
	if f.url == "" {
		return Table{}, fmt.Errorf("fetch price list: %w", ErrSheetPrivate)
	}

	resp, err := f.httpClient.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return Table{}, fmt.Errorf("fetch price list: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return Table{}, fmt.Errorf("fetch price list: status=%d: %w", resp.StatusCode(), ErrSheetPrivate)
	}
	if strings.Contains(resp.Header().Get("Content-Type"), "text/html") {
		return Table{}, fmt.Errorf("fetch price list: %w", ErrSheetPrivate)
	}

	return ReadCSV(bytes.NewReader(resp.Body()))
}
