package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/estimate"
)

// SQLStore keeps records in SQLite. Quantities live in a child table so the
// schema does not grow with the price list.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore wraps a migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Append inserts a record and its quantities in one transaction.
func (s *SQLStore) Append(ctx context.Context, r Record) (int64, error) {
	if r.Status == "" {
		r.Status = estimate.StatusActive
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC().Truncate(time.Second)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO estimates (
			status, client, reference, description, quote_date,
			foil_height, foil_width, foil_code,
			subtotal, tax, grand_total, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(r.Status), r.Client, r.Reference, r.Description, r.Date,
		r.FoilHeight.String(), r.FoilWidth.String(), r.FoilCode.String(),
		r.Subtotal.String(), r.Tax.String(), r.GrandTotal.String(), formatTime(r.CreatedAt),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert estimate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read estimate id: %w", err)
	}

	for item, qty := range r.Quantities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO estimate_quantities (estimate_id, item_name, quantity)
			VALUES (?, ?, ?)
		`, id, item, qty.String()); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert estimate quantity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append transaction: %w", err)
	}
	return id, nil
}

// SetStatus changes one record's status.
func (s *SQLStore) SetStatus(ctx context.Context, id int64, status estimate.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE estimates SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update estimate status: %w", err)
	}
	return requireAffected(result)
}

// Delete removes one record and its quantities.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete estimate: %w", err)
	}
	return requireAffected(result)
}

// Search returns matching records in append order.
func (s *SQLStore) Search(ctx context.Context, term string) ([]Record, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, status, client, reference, description, quote_date,
			foil_height, foil_width, foil_code,
			subtotal, tax, grand_total, created_at
		FROM estimates
		WHERE (? = ''
			OR LOWER(client) LIKE ? ESCAPE '\'
			OR LOWER(reference) LIKE ? ESCAPE '\'
			OR LOWER(description) LIKE ? ESCAPE '\')
		ORDER BY id ASC
	`, term, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	recs := make([]Record, 0)
	byID := make(map[int64]int)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		byID[r.ID] = len(recs)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	if len(recs) == 0 {
		return recs, nil
	}

	if err := s.attachQuantities(ctx, recs, byID); err != nil {
		return nil, err
	}
	return recs, nil
}

// Get returns one record.
func (s *SQLStore) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			id, status, client, reference, description, quote_date,
			foil_height, foil_width, foil_code,
			subtotal, tax, grand_total, created_at
		FROM estimates
		WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	recs := []Record{r}
	if err := s.attachQuantities(ctx, recs, map[int64]int{r.ID: 0}); err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// Load returns the flattened view of one record.
func (s *SQLStore) Load(ctx context.Context, id int64) (FieldMap, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Fields(), nil
}

func (s *SQLStore) attachQuantities(ctx context.Context, recs []Record, byID map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT estimate_id, item_name, quantity FROM estimate_quantities`)
	if err != nil {
		return fmt.Errorf("query estimate quantities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			item string
			qty  string
		)
		if err := rows.Scan(&id, &item, &qty); err != nil {
			return fmt.Errorf("scan estimate quantity: %w", err)
		}
		if i, ok := byID[id]; ok {
			recs[i].Quantities[item] = parseDecimal(qty)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate estimate quantities: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                         Record
		status, createdAt         string
		foilH, foilW, foilC       string
		subtotal, tax, grandTotal string
	)
	if err := row.Scan(
		&r.ID, &status, &r.Client, &r.Reference, &r.Description, &r.Date,
		&foilH, &foilW, &foilC,
		&subtotal, &tax, &grandTotal, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan estimate: %w", err)
	}

	r.Status = estimate.Status(status)
	r.FoilHeight = parseDecimal(foilH)
	r.FoilWidth = parseDecimal(foilW)
	r.FoilCode = parseDecimal(foilC)
	r.Subtotal = parseDecimal(subtotal)
	r.Tax = parseDecimal(tax)
	r.GrandTotal = parseDecimal(grandTotal)
	r.CreatedAt = parseTime(createdAt)
	r.Quantities = make(map[string]decimal.Decimal)
	return r, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
