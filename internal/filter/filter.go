package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

// DefaultRangeDays is the look-back of the default date range.
const DefaultRangeDays = 30

const dateLayout = "2006-01-02"

// Filter narrows a transaction list. Zero-valued optional fields match everything.
type Filter struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	MinAmount *float64  `json:"min_amount,omitempty"`
	MaxAmount *float64  `json:"max_amount,omitempty"`
	Search    string    `json:"search,omitempty"`
}

// Default covers the last 30 days up to and including today.
func Default(now time.Time) Filter {
	today := models.Day(now)
	return Filter{From: today.AddDate(0, 0, -DefaultRangeDays), To: today}
}

// Clear resets every criterion to the default range.
func Clear(now time.Time) Filter { return Default(now) }

// Match reports whether tx satisfies every criterion of f.
func (f Filter) Match(tx models.Transaction) bool {
	d := models.Day(tx.Date)
	if d.Before(models.Day(f.From)) || d.After(models.Day(f.To)) {
		return false
	}
	if f.VehicleID != "" && (tx.VehicleID == nil || *tx.VehicleID != f.VehicleID) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.MinAmount != nil && tx.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && tx.Amount > *f.MaxAmount {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(tx.Description), q) &&
			!strings.Contains(strings.ToLower(tx.Location), q) {
			return false
		}
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f Filter) Apply(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// FromQuery builds a filter from query parameters. Dates missing from the
// query fall back to the default range.
func FromQuery(q url.Values, now time.Time) (Filter, error) {
	f := Default(now)

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return Filter{}, apperr.Validation("from", "from must be a YYYY-MM-DD date")
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return Filter{}, apperr.Validation("to", "to must be a YYYY-MM-DD date")
		}
		f.To = t
	}
	if f.To.Before(f.From) {
		return Filter{}, apperr.Validation("to", "to must not be before from")
	}

	f.VehicleID = q.Get("vehicle_id")
	f.Type = q.Get("type")
	f.Search = q.Get("search")

	for _, b := range []struct {
		key string
		dst **float64
	}{{"min_amount", &f.MinAmount}, {"max_amount", &f.MaxAmount}} {
		v := q.Get(b.key)
		if v == "" {
			continue
		}
		n, err := cast.ToFloat64E(v)
		if err != nil || n < 0 {
			return Filter{}, apperr.Validation(b.key, b.key+" must be a non-negative number")
		}
		*b.dst = &n
	}
	if f.MinAmount != nil && f.MaxAmount != nil && *f.MaxAmount < *f.MinAmount {
		return Filter{}, apperr.Validation("max_amount", "max_amount must not be below min_amount")
	}
	return f, nil
}
