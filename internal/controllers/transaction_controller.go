package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"myfleet/internal/filter"
	"myfleet/internal/fleet"
)

// ListTransactions applies the query filter; without dates it covers the
// last 30 days.
func (f *FleetController) ListTransactions(c *gin.Context) {
	flt, err := filter.FromQuery(c.Request.URL.Query(), f.now())
	if err != nil {
		respondError(c, err)
		return
	}
	txs, err := f.workspace(c).Transactions().Search(c.Request.Context(), flt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txs, "filter": flt})
}

func (f *FleetController) CreateTransaction(c *gin.Context) {
	var input fleet.TransactionInput
	if !bindJSON(c, &input) {
		return
	}
	tx, err := f.workspace(c).Transactions().Add(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

func (f *FleetController) UpdateTransaction(c *gin.Context) {
	var patch fleet.TransactionPatch
	if !bindJSON(c, &patch) {
		return
	}
	tx, err := f.workspace(c).Transactions().Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

func (f *FleetController) DeleteTransaction(c *gin.Context) {
	if err := f.workspace(c).Transactions().Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
