package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/estimate"
)

var fixedColumns = []string{
	estimate.FieldID,
	estimate.FieldStatus,
	estimate.FieldClient,
	estimate.FieldReference,
	estimate.FieldDescription,
	estimate.FieldDate,
	estimate.FieldFoilHeight,
	estimate.FieldFoilWidth,
	estimate.FieldFoilCode,
	estimate.FieldSubtotal,
	estimate.FieldTax,
	estimate.FieldGrandTotal,
	estimate.FieldCreatedAt,
}

// CSVStore keeps records in a flat delimited file. The table is read once at
// open and rewritten in full on every mutation; a single writer is assumed.
// The next ID lives in a sidecar file next to the table so a deleted
// record's ID is never handed out again, even across restarts.
type CSVStore struct {
	mu      sync.Mutex
	path    string
	records []Record
	items   []string
	nextID  int64
	saved   int64 // counter value last written to the sidecar
	now     func() time.Time
}

// OpenCSV loads the table at path. A missing file is an empty store.
func OpenCSV(path string) (*CSVStore, error) {
	s := &CSVStore{path: path, nextID: 1, now: time.Now}

	saved, err := readNextID(sequencePath(path))
	if err != nil {
		return nil, err
	}
	s.saved = saved
	if saved > s.nextID {
		s.nextID = saved
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()

	recs, items, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("read records file %s: %w", path, err)
	}
	for i := range recs {
		if recs[i].ID <= 0 {
			recs[i].ID = s.nextID
		}
		if recs[i].ID >= s.nextID {
			s.nextID = recs[i].ID + 1
		}
	}
	s.records = recs
	s.items = items
	return s, nil
}

func sequencePath(path string) string { return path + ".next" }

// readNextID returns the persisted counter, or 0 when there is none yet.
func readNextID(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read records sequence: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse records sequence %s: %w", path, err)
	}
	return n, nil
}

// readTable returns the rows and the item names named by the header, so
// quantity columns survive even when no remaining row uses them.
func readTable(r io.Reader) ([]Record, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	header := rows[0]
	var items []string
	for _, col := range header {
		if item, ok := estimate.ItemFromQuantityKey(col); ok {
			items = append(items, item)
		}
	}
	recs := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := make(FieldMap, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				fields[col] = row[i]
			}
		}
		recs = append(recs, recordFromFields(fields))
	}
	return recs, items, nil
}

func recordFromFields(fields FieldMap) Record {
	id, _ := strconv.ParseInt(fields[estimate.FieldID], 10, 64)
	status := estimate.Status(fields[estimate.FieldStatus])
	if !status.Valid() {
		status = estimate.StatusActive
	}

	r := Record{
		ID:          id,
		Status:      status,
		Client:      fields[estimate.FieldClient],
		Reference:   fields[estimate.FieldReference],
		Description: fields[estimate.FieldDescription],
		Date:        fields[estimate.FieldDate],
		FoilHeight:  parseDecimal(fields[estimate.FieldFoilHeight]),
		FoilWidth:   parseDecimal(fields[estimate.FieldFoilWidth]),
		FoilCode:    parseDecimal(fields[estimate.FieldFoilCode]),
		Subtotal:    parseDecimal(fields[estimate.FieldSubtotal]),
		Tax:         parseDecimal(fields[estimate.FieldTax]),
		GrandTotal:  parseDecimal(fields[estimate.FieldGrandTotal]),
		Quantities:  make(map[string]decimal.Decimal),
		CreatedAt:   parseTime(fields[estimate.FieldCreatedAt]),
	}
	for key, value := range fields {
		if item, ok := estimate.ItemFromQuantityKey(key); ok {
			r.Quantities[item] = parseDecimal(value)
		}
	}
	return r
}

// Append adds a record and returns its new ID.
func (s *CSVStore) Append(_ context.Context, r Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = cloneRecord(r)
	r.ID = s.nextID
	if r.Status == "" {
		r.Status = estimate.StatusActive
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC().Truncate(time.Second)
	}

	next := make([]Record, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, r)
	if err := s.commit(next, r.ID+1); err != nil {
		return 0, err
	}
	return r.ID, nil
}

// SetStatus changes one record's status.
func (s *CSVStore) SetStatus(_ context.Context, id int64, status estimate.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := make([]Record, len(s.records))
	copy(next, s.records)
	next[i].Status = status
	return s.commit(next, s.nextID)
}

// Delete removes one record. Other IDs are unaffected.
func (s *CSVStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := make([]Record, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	return s.commit(next, s.nextID)
}

// Search returns matching records in append order.
func (s *CSVStore) Search(_ context.Context, term string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Matches(term) {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

// Get returns one record.
func (s *CSVStore) Get(_ context.Context, id int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return cloneRecord(s.records[i]), nil
}

// Load returns the flattened view of one record without mutating the store.
func (s *CSVStore) Load(ctx context.Context, id int64) (FieldMap, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Fields(), nil
}

func (s *CSVStore) indexOf(id int64) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// commit writes next to disk and, on success, makes it the live table. The
// counter is written first: a failed table write may skip an ID but never
// reuses one.
func (s *CSVStore) commit(next []Record, nextID int64) error {
	if nextID != s.saved {
		err := replaceFile(sequencePath(s.path), func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "%d\n", nextID)
			return err
		})
		if err != nil {
			return fmt.Errorf("write records sequence: %w", err)
		}
		s.saved = nextID
		s.nextID = nextID
	}

	items := mergeNames(s.items, ItemNames(next))
	err := replaceFile(s.path, func(w io.Writer) error {
		return writeTable(w, next, items)
	})
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	s.records = next
	s.items = items
	return nil
}

// replaceFile writes through a temp file in the same directory and renames
// it over path.
func replaceFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".records-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func writeTable(w io.Writer, recs []Record, items []string) error {
	header := make([]string, 0, len(fixedColumns)+len(items))
	header = append(header, fixedColumns...)
	for _, item := range items {
		header = append(header, estimate.QuantityKey(item))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		fields := r.Fields()
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = fields[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
