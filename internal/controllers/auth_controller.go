package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"myfleet/internal/auth"
	"myfleet/internal/metrics"
	"myfleet/internal/middleware"
)

type AuthController struct {
	auth *auth.Service
}

func NewAuthController(svc *auth.Service) *AuthController {
	return &AuthController{auth: svc}
}

// SendOTP texts a login code. Repeats inside the resend window keep the
// code already sent.
func (a *AuthController) SendOTP(c *gin.Context) {
	var body struct {
		Phone string `json:"phone"`
	}
	if !bindJSON(c, &body) {
		return
	}
	out, err := a.auth.SendOTP(c.Request.Context(), body.Phone)
	if err != nil {
		metrics.OTPRequested("error")
		respondError(c, err)
		return
	}
	if out.Sent {
		metrics.OTPRequested("sent")
	} else {
		metrics.OTPRequested("reused")
	}
	c.JSON(http.StatusOK, out)
}

func (a *AuthController) VerifyOTP(c *gin.Context) {
	var body struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if !bindJSON(c, &body) {
		return
	}
	res, err := a.auth.VerifyOTP(c.Request.Context(), body.Phone, body.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (a *AuthController) Logout(c *gin.Context) {
	if err := a.auth.Logout(c.Request.Context(), c.GetString(middleware.CtxSessionID)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (a *AuthController) Me(c *gin.Context) {
	st, err := a.auth.Me(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *AuthController) CompleteOnboarding(c *gin.Context) {
	var in auth.OnboardingInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := a.auth.CompleteOnboarding(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (a *AuthController) SetLanguage(c *gin.Context) {
	var body struct {
		Language string `json:"language"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := a.auth.SetLanguage(c.Request.Context(), ownerID(c), body.Language); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": body.Language})
}
