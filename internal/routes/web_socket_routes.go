package routes

import (
	"github.com/gin-gonic/gin"

	"myfleet/internal/middleware"
	"myfleet/internal/models"
)

func WebSocketRoutes(r *gin.Engine, d Deps) {
	wsRoutes := r.Group("/ws")
	wsRoutes.Use(authed(d), middleware.RequireRole(models.RoleOwner), middleware.RequireSubscription(d.Profiles, d.Now))
	{
		wsRoutes.GET("/overview", d.Overview.HandleOverviewWebSocket)
	}
}
