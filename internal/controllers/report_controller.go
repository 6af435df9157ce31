package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"myfleet/internal/pnl"
)

func (f *FleetController) ProfitLoss(c *gin.Context) {
	period, err := pnl.ParsePeriod(c.Query("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	sum, err := f.workspace(c).ProfitLoss(c.Request.Context(), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "summary": sum})
}

func (f *FleetController) Overview(c *gin.Context) {
	stats, err := f.workspace(c).Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
