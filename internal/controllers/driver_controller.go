package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"myfleet/internal/fleet"
)

func (f *FleetController) ListDrivers(c *gin.Context) {
	drivers, err := f.workspace(c).Drivers().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": drivers})
}

func (f *FleetController) CreateDriver(c *gin.Context) {
	var input fleet.DriverInput
	if !bindJSON(c, &input) {
		return
	}
	driver, err := f.workspace(c).Drivers().Add(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"driver": driver})
}

func (f *FleetController) UpdateDriver(c *gin.Context) {
	var patch fleet.DriverPatch
	if !bindJSON(c, &patch) {
		return
	}
	driver, err := f.workspace(c).Drivers().Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": driver})
}

func (f *FleetController) DeleteDriver(c *gin.Context) {
	if err := f.workspace(c).Drivers().Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver deleted"})
}

// AssignVehicle hands a vehicle to the driver, taking it from whoever had it.
func (f *FleetController) AssignVehicle(c *gin.Context) {
	vehicle, driver, err := f.workspace(c).Drivers().AssignVehicle(c.Request.Context(), c.Param("id"), c.Param("vehicleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle, "driver": driver})
}

func (f *FleetController) UnassignVehicle(c *gin.Context) {
	vehicle, driver, err := f.workspace(c).Drivers().UnassignVehicle(c.Request.Context(), c.Param("id"), c.Param("vehicleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle, "driver": driver})
}
