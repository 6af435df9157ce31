package pnl

import (
	"math"

	"myfleet/internal/models"
)

type Stats struct {
	TotalVehicles   int     `json:"total_vehicles"`
	TotalBalance    float64 `json:"total_balance"`
	PendingChallans int     `json:"pending_challans"`
	ComplianceRate  int     `json:"compliance_rate"`
}

// Overview reduces a fleet to its dashboard numbers. The compliance rate is
// the share of uploaded document slots, rounded to a whole percent.
func Overview(vehicles []models.Vehicle) Stats {
	st := Stats{TotalVehicles: len(vehicles)}
	if len(vehicles) == 0 {
		return st
	}

	uploaded := 0
	for _, v := range vehicles {
		st.TotalBalance += v.Balance
		st.PendingChallans += v.Challans
		uploaded += v.Documents.Uploaded()
	}
	slots := len(models.DocumentKinds) * len(vehicles)
	st.ComplianceRate = int(math.Round(float64(uploaded) * 100 / float64(slots)))
	return st
}
