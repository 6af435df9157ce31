package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
	"myfleet/internal/middleware"
)

// respondError writes the error as {"error": ...} with the status for its kind.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"error": apperr.Message(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Field != "" {
		body["field"] = ae.Field
	}
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":    c.FullPath(),
			"user_id": c.GetString(middleware.CtxUserID),
		}).Error("Request failed")
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body into dst. Input structs carry validate
// tags only, so gin decodes and the domain layer does the one validation pass.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(c, apperr.Validation("body", "request body is required"))
		} else {
			respondError(c, apperr.Validation("body", "invalid JSON: "+err.Error()))
		}
		return false
	}
	return true
}

func ownerID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}
