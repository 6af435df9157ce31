package routes

import (
	"github.com/gin-gonic/gin"
)

func VehicleRoutes(api *gin.RouterGroup, d Deps) {
	vehicle := fleetGroup(api, "/vehicles", d)
	{
		vehicle.GET("", d.Fleet.ListVehicles)
		vehicle.POST("", d.Fleet.CreateVehicle)
		vehicle.PUT("/:id", d.Fleet.UpdateVehicle)
		vehicle.DELETE("/:id", d.Fleet.DeleteVehicle)
		vehicle.PUT("/:id/documents/:kind", d.Fleet.UpdateVehicleDocument)
		vehicle.POST("/:id/topup", d.Fleet.TopUpVehicle)
	}
}

func TransactionRoutes(api *gin.RouterGroup, d Deps) {
	tx := fleetGroup(api, "/transactions", d)
	{
		tx.GET("", d.Fleet.ListTransactions)
		tx.POST("", d.Fleet.CreateTransaction)
		tx.PUT("/:id", d.Fleet.UpdateTransaction)
		tx.DELETE("/:id", d.Fleet.DeleteTransaction)
	}
}

func TripRoutes(api *gin.RouterGroup, d Deps) {
	trip := fleetGroup(api, "/trips", d)
	{
		trip.GET("", d.Fleet.ListTrips)
		trip.POST("", d.Fleet.CreateTrip)
		trip.PATCH("/:id/status", d.Fleet.UpdateTripStatus)
		trip.DELETE("/:id", d.Fleet.DeleteTrip)
	}
}

func ReportRoutes(api *gin.RouterGroup, d Deps) {
	report := fleetGroup(api, "/reports", d)
	{
		report.GET("/pnl", d.Fleet.ProfitLoss)
		report.GET("/overview", d.Fleet.Overview)
	}
}
