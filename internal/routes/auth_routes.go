package routes

import (
	"github.com/gin-gonic/gin"
)

func AuthRoutes(api *gin.RouterGroup, d Deps) {
	auth := api.Group("/auth")
	{
		auth.POST("/otp", d.Limiter.Handler(), d.Auth.SendOTP)
		auth.POST("/verify", d.Limiter.Handler(), d.Auth.VerifyOTP)
		auth.POST("/logout", authed(d), d.Auth.Logout)
	}

	me := api.Group("")
	me.Use(authed(d))
	{
		me.GET("/me", d.Auth.Me)
		me.POST("/onboarding", d.Auth.CompleteOnboarding)
		me.PUT("/profile/language", d.Auth.SetLanguage)
	}
}
