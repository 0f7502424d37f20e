package estimate

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/pricelist"
	"github.com/Simplici0/reprocost/internal/pricing"
)

// Session holds the state of one operator's estimate form. The price list
// survives Reset; everything else is form-scoped.
type Session struct {
	ID string

	Items       []pricelist.Item
	ItemsSource string

	Client      string
	Reference   string
	Description string
	Date        time.Time
	Foil        Foil
	Quantities  map[string]decimal.Decimal
	Overrides   map[string]decimal.Decimal

	// LoadedID is the record the form was pre-populated from, or 0.
	LoadedID int64
	// ResetCount increments on every Reset and Apply.
	ResetCount int
}

// NewSession returns an empty form dated today.
func NewSession(id string, today time.Time) *Session {
	s := &Session{ID: id}
	s.clearForm(today)
	return s
}

// SetPriceList replaces the loaded price list. Quantities and overrides for
// items no longer present are kept so a reload of the same list is lossless.
func (s *Session) SetPriceList(items []pricelist.Item, source string) {
	s.Items = items
	s.ItemsSource = source
}

// Reset clears form-scoped fields. The price list is kept.
func (s *Session) Reset(today time.Time) {
	s.clearForm(today)
	s.ResetCount++
}

func (s *Session) clearForm(today time.Time) {
	s.Client = ""
	s.Reference = ""
	s.Description = ""
	s.Date = today
	s.Foil = Foil{}
	s.Quantities = make(map[string]decimal.Decimal)
	s.Overrides = make(map[string]decimal.Decimal)
	s.LoadedID = 0
}

// Apply pre-populates the form from a flattened record view. Unit price
// overrides are cleared so prices follow the current list.
func (s *Session) Apply(id int64, fields map[string]string, today time.Time) {
	s.clearForm(today)
	s.ResetCount++
	s.LoadedID = id

	s.Client = fields[FieldClient]
	s.Reference = fields[FieldReference]
	s.Description = fields[FieldDescription]
	if d, err := time.Parse(DateLayout, fields[FieldDate]); err == nil {
		s.Date = d
	}
	s.Foil = Foil{
		Height: pricelist.ParseAmount(fields[FieldFoilHeight]),
		Width:  pricelist.ParseAmount(fields[FieldFoilWidth]),
		Code:   pricelist.ParseAmount(fields[FieldFoilCode]),
	}
	for key, value := range fields {
		if item, ok := ItemFromQuantityKey(key); ok {
			s.Quantities[item] = pricelist.ParseAmount(value)
		}
	}
}

// Compute prices the current form against the loaded price list.
func (s *Session) Compute() Estimate {
	result := pricing.Calculate(pricing.Input{
		Items:      s.Items,
		FoilCode:   s.Foil.Code,
		Quantities: s.Quantities,
		Overrides:  s.Overrides,
	})

	return Estimate{
		Client:      strings.TrimSpace(s.Client),
		Reference:   strings.TrimSpace(s.Reference),
		Description: strings.TrimSpace(s.Description),
		Date:        s.Date,
		Foil:        s.Foil,
		Lines:       result.Lines,
		Totals:      result.Totals,
		Status:      StatusActive,
	}
}

// SessionIdleTimeout is how long an untouched form session is kept.
const SessionIdleTimeout = 12 * time.Hour

// Sessions is an in-memory registry of form sessions. Sessions idle for
// longer than SessionIdleTimeout are dropped whenever a new one is created.
type Sessions struct {
	mu    sync.Mutex
	byID  map[string]*sessionEntry
	today func() time.Time
	now   func() time.Time
}

type sessionEntry struct {
	session  *Session
	lastUsed time.Time
}

// NewSessions builds an empty registry. today supplies the default form date.
func NewSessions(today func() time.Time) *Sessions {
	if today == nil {
		today = func() time.Time {
			y, m, d := time.Now().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		}
	}
	return &Sessions{byID: make(map[string]*sessionEntry), today: today, now: time.Now}
}

// Today returns the registry's notion of the current date.
func (r *Sessions) Today() time.Time {
	return r.today()
}

// Len reports how many sessions are held.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Do runs fn against the session with the given ID, creating a new session
// when the ID is unknown, empty or expired. It returns the ID actually used.
func (r *Sessions) Do(id string, fn func(*Session)) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.byID[id]
	if ok && now.Sub(e.lastUsed) > SessionIdleTimeout {
		delete(r.byID, id)
		ok = false
	}
	if !ok {
		r.sweep(now)
		e = &sessionEntry{session: NewSession(uuid.NewString(), r.today())}
		r.byID[e.session.ID] = e
	}
	e.lastUsed = now
	fn(e.session)
	return e.session.ID
}

func (r *Sessions) sweep(now time.Time) {
	for id, e := range r.byID {
		if now.Sub(e.lastUsed) > SessionIdleTimeout {
			delete(r.byID, id)
		}
	}
}
