package routes

import (
	"github.com/gin-gonic/gin"

	"myfleet/internal/middleware"
)

func SubscriptionRoutes(api *gin.RouterGroup, d Deps) {
	api.GET("/subscription/plans", d.Subscriptions.Plans)

	sub := api.Group("/subscription")
	sub.Use(authed(d), middleware.RequireOnboarded(d.Profiles))
	{
		sub.POST("/trial", d.Subscriptions.StartTrial)
		sub.POST("/checkout", d.Subscriptions.Checkout)
	}

	// signed by the gateway, no JWT
	api.POST("/payments/webhook", d.Subscriptions.Webhook)
}
