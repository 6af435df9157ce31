package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"myfleet/internal/fleet"
)

// FleetController serves the owner's vehicles, drivers, transactions, trips
// and reports from the cached workspace.
type FleetController struct {
	reg *fleet.Registry
	now func() time.Time
}

func NewFleetController(reg *fleet.Registry) *FleetController {
	return &FleetController{reg: reg, now: time.Now}
}

func (f *FleetController) workspace(c *gin.Context) *fleet.Workspace {
	return f.reg.Workspace(ownerID(c))
}

func (f *FleetController) ListVehicles(c *gin.Context) {
	vehicles, err := f.workspace(c).Vehicles().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

func (f *FleetController) CreateVehicle(c *gin.Context) {
	var input fleet.VehicleInput
	if !bindJSON(c, &input) {
		return
	}
	vehicle, err := f.workspace(c).Vehicles().Add(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

func (f *FleetController) UpdateVehicle(c *gin.Context) {
	var patch fleet.VehiclePatch
	if !bindJSON(c, &patch) {
		return
	}
	vehicle, err := f.workspace(c).Vehicles().Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func (f *FleetController) UpdateVehicleDocument(c *gin.Context) {
	var input fleet.DocumentInput
	if !bindJSON(c, &input) {
		return
	}
	vehicle, err := f.workspace(c).Vehicles().UpdateDocument(c.Request.Context(), c.Param("id"), c.Param("kind"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func (f *FleetController) TopUpVehicle(c *gin.Context) {
	var input fleet.TopUpInput
	if !bindJSON(c, &input) {
		return
	}
	vehicle, err := f.workspace(c).Vehicles().TopUp(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func (f *FleetController) DeleteVehicle(c *gin.Context) {
	if err := f.workspace(c).Vehicles().Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}
