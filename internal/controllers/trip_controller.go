package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"myfleet/internal/fleet"
	"myfleet/internal/geo"
	"myfleet/internal/models"
)

// tripResponse exposes the stored WKB route as GeoJSON.
type tripResponse struct {
	models.Trip
	Route json.RawMessage `json:"route,omitempty"`
}

func toTripResponse(t models.Trip) tripResponse {
	out := tripResponse{Trip: t}
	s, err := geo.WKBToGeoJSON(t.Route)
	if err != nil {
		logrus.WithError(err).WithField("trip_id", t.ID).Warn("Stored trip route is not valid WKB")
		return out
	}
	if s != "" {
		out.Route = json.RawMessage(s)
	}
	return out
}

func (f *FleetController) ListTrips(c *gin.Context) {
	trips, err := f.workspace(c).Trips().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (f *FleetController) CreateTrip(c *gin.Context) {
	var input fleet.TripInput
	if !bindJSON(c, &input) {
		return
	}
	trip, err := f.workspace(c).Trips().Add(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": toTripResponse(*trip)})
}

func (f *FleetController) UpdateTripStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if !bindJSON(c, &body) {
		return
	}
	trip, err := f.workspace(c).Trips().UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": toTripResponse(*trip)})
}

func (f *FleetController) DeleteTrip(c *gin.Context) {
	if err := f.workspace(c).Trips().Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted"})
}
