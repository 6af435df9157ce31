// Package pnl computes the profit and loss summary and fleet overview stats.
// Everything here is a pure function of its inputs.
package pnl

import (
	"strings"
	"time"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

type Period string

const (
	Today   Period = "today"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// ParsePeriod accepts the period names case-insensitively. Empty means Today.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Today, nil
	case Today, Weekly, Monthly, Yearly:
		return p, nil
	}
	return "", apperr.Validation("period", "period must be one of today, weekly, monthly, yearly")
}

type Entry struct {
	Date     time.Time `json:"date"`
	Revenue  float64   `json:"revenue"`
	Expenses float64   `json:"expenses"`
}

// Ledger is the dated financial history of one vehicle. An empty VehicleID
// holds fleet-level entries not tied to a vehicle.
type Ledger struct {
	VehicleID string  `json:"vehicle_id"`
	Entries   []Entry `json:"entries"`
}

type Summary struct {
	Profit   float64 `json:"profit"`
	Loss     float64 `json:"loss"`
	NetPnL   float64 `json:"net_pnl"`
	IsProfit bool    `json:"is_profit"`
}

// Window returns the inclusive day range for period anchored at now.
func Window(period Period, now time.Time) (from, to time.Time) {
	to = models.Day(now)
	switch period {
	case Weekly:
		from = models.Day(now.AddDate(0, 0, -7))
	case Monthly:
		from = models.Day(now.AddDate(0, -1, 0))
	case Yearly:
		from = models.Day(now.AddDate(-1, 0, 0))
	default:
		from = to
	}
	return from, to
}

// ProfitLoss sums revenue and expenses of every entry whose day lies in the
// period window.
func ProfitLoss(ledgers []Ledger, period Period, now time.Time) Summary {
	from, to := Window(period, now)

	var s Summary
	for _, l := range ledgers {
		for _, e := range l.Entries {
			d := models.Day(e.Date)
			if d.Before(from) || d.After(to) {
				continue
			}
			s.Profit += e.Revenue
			s.Loss += e.Expenses
		}
	}
	s.NetPnL = s.Profit - s.Loss
	s.IsProfit = s.NetPnL >= 0
	return s
}

// LedgersFromTransactions folds transactions into one ledger per vehicle, in
// vehicle order, with one entry per transaction. Transactions without a known
// vehicle land in a trailing fleet-level ledger.
func LedgersFromTransactions(vehicles []models.Vehicle, txs []models.Transaction) []Ledger {
	index := make(map[string]int, len(vehicles))
	ledgers := make([]Ledger, 0, len(vehicles)+1)
	for _, v := range vehicles {
		index[v.ID] = len(ledgers)
		ledgers = append(ledgers, Ledger{VehicleID: v.ID, Entries: []Entry{}})
	}

	var fleet Ledger
	for _, tx := range txs {
		e := Entry{Date: tx.Date}
		if tx.Category == models.CategoryIncome {
			e.Revenue = tx.Amount
		} else {
			e.Expenses = tx.Amount
		}
		if tx.VehicleID != nil {
			if i, ok := index[*tx.VehicleID]; ok {
				ledgers[i].Entries = append(ledgers[i].Entries, e)
				continue
			}
		}
		fleet.Entries = append(fleet.Entries, e)
	}
	if len(fleet.Entries) > 0 {
		ledgers = append(ledgers, fleet)
	}
	return ledgers
}
