package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

var now = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 18, 0, 0, 0, time.UTC)
}

func TestProfitLossWindowBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		period  Period
		inside  []time.Time
		outside []time.Time
	}{
		{
			name:    "today",
			period:  Today,
			inside:  []time.Time{now, day(2025, 3, 15)},
			outside: []time.Time{day(2025, 3, 14), day(2025, 3, 16)},
		},
		{
			name:    "weekly",
			period:  Weekly,
			inside:  []time.Time{now, day(2025, 3, 8)},
			outside: []time.Time{day(2025, 3, 7), day(2025, 3, 16)},
		},
		{
			name:    "monthly",
			period:  Monthly,
			inside:  []time.Time{now, day(2025, 2, 15)},
			outside: []time.Time{day(2025, 2, 14), day(2025, 3, 16)},
		},
		{
			name:    "yearly",
			period:  Yearly,
			inside:  []time.Time{now, day(2024, 3, 15)},
			outside: []time.Time{day(2024, 3, 14), day(2025, 3, 16)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []Entry
			for _, d := range tt.inside {
				entries = append(entries, Entry{Date: d, Revenue: 100, Expenses: 10})
			}
			for _, d := range tt.outside {
				entries = append(entries, Entry{Date: d, Revenue: 1000, Expenses: 1000})
			}

			got := ProfitLoss([]Ledger{{VehicleID: "v1", Entries: entries}}, tt.period, now)

			want := float64(len(tt.inside))
			assert.Equal(t, 100*want, got.Profit)
			assert.Equal(t, 10*want, got.Loss)
			assert.Equal(t, 90*want, got.NetPnL)
			assert.True(t, got.IsProfit)
		})
	}
}

func TestProfitLossScenario(t *testing.T) {
	ledgers := []Ledger{
		{VehicleID: "A", Entries: []Entry{{Date: now, Revenue: 1000, Expenses: 400}}},
		{VehicleID: "B"},
	}

	got := ProfitLoss(ledgers, Today, now)

	assert.Equal(t, Summary{Profit: 1000, Loss: 400, NetPnL: 600, IsProfit: true}, got)
}

func TestProfitLossEmptyAndLoss(t *testing.T) {
	assert.Equal(t, Summary{IsProfit: true}, ProfitLoss(nil, Monthly, now))

	loss := ProfitLoss([]Ledger{{Entries: []Entry{{Date: now, Revenue: 50, Expenses: 80}}}}, Today, now)
	assert.Equal(t, -30.0, loss.NetPnL)
	assert.False(t, loss.IsProfit)
}

func TestProfitLossIsIdempotent(t *testing.T) {
	ledgers := []Ledger{
		{VehicleID: "A", Entries: []Entry{{Date: now, Revenue: 10}, {Date: day(2025, 3, 10), Expenses: 3}}},
		{VehicleID: "B", Entries: []Entry{{Date: day(2025, 3, 1), Revenue: 7, Expenses: 2}}},
	}

	first := ProfitLoss(ledgers, Monthly, now)
	second := ProfitLoss(ledgers, Monthly, now)

	assert.Equal(t, first, second)
	assert.Equal(t, Summary{Profit: 17, Loss: 5, NetPnL: 12, IsProfit: true}, first)
}

func TestLedgersFromTransactions(t *testing.T) {
	a, ghost := "A", "ghost"
	vehicles := []models.Vehicle{{Base: models.Base{ID: "A"}}, {Base: models.Base{ID: "B"}}}
	txs := []models.Transaction{
		{VehicleID: &a, Date: now, Amount: 1000, Category: models.CategoryIncome},
		{VehicleID: &a, Date: now, Amount: 400, Category: models.CategoryExpense},
		{VehicleID: &ghost, Date: now, Amount: 5, Category: models.CategoryExpense},
		{Date: now, Amount: 20, Category: models.CategoryIncome},
	}

	ledgers := LedgersFromTransactions(vehicles, txs)

	require.Len(t, ledgers, 3)
	assert.Equal(t, "A", ledgers[0].VehicleID)
	assert.Len(t, ledgers[0].Entries, 2)
	assert.Equal(t, "B", ledgers[1].VehicleID)
	assert.Empty(t, ledgers[1].Entries)
	assert.Equal(t, "", ledgers[2].VehicleID)
	assert.Len(t, ledgers[2].Entries, 2)

	got := ProfitLoss(ledgers, Today, now)
	assert.Equal(t, 1020.0, got.Profit)
	assert.Equal(t, 405.0, got.Loss)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, Weekly, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Today, p)

	_, err = ParsePeriod("decade")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
