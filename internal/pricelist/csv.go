package pricelist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptySource is returned when a source holds no header row.
var ErrEmptySource = errors.New("price list source is empty")

// ReadCSV reads a delimited price list. The first record is the header;
// ragged rows are accepted.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse price list csv: %w", err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, ErrEmptySource
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}
