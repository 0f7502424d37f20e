package pricelist

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// SheetsSource reads a price list range through the Google Sheets API using
// service account credentials.
type SheetsSource struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetRange    string
}

// NewSheetsSource builds a read-only Sheets API client.
func NewSheetsSource(ctx context.Context, credentialsPath, spreadsheetID, sheetRange string) (*SheetsSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id must not be empty")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
	}, nil
}

// Fetch reads the configured range.
func (s *SheetsSource) Fetch(ctx context.Context) (Table, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetRange).Context(ctx).Do()
	if err != nil {
		return Table{}, fmt.Errorf("read range %s: %w", s.sheetRange, err)
	}
	return fromValues(resp.Values)
}

func fromValues(values [][]interface{}) (Table, error) {
	records := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		records = append(records, cells)
	}
	return fromRecords(records)
}
