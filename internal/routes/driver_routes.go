package routes

import (
	"github.com/gin-gonic/gin"
)

func DriverRoutes(api *gin.RouterGroup, d Deps) {
	driver := fleetGroup(api, "/drivers", d)
	{
		driver.GET("", d.Fleet.ListDrivers)
		driver.POST("", d.Fleet.CreateDriver)
		driver.PUT("/:id", d.Fleet.UpdateDriver)
		driver.DELETE("/:id", d.Fleet.DeleteDriver)
		driver.POST("/:id/vehicles/:vehicleId", d.Fleet.AssignVehicle)
		driver.DELETE("/:id/vehicles/:vehicleId", d.Fleet.UnassignVehicle)
	}
}
