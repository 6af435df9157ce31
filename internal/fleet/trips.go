package fleet

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"myfleet/internal/apperr"
	"myfleet/internal/geo"
	"myfleet/internal/models"
	"myfleet/internal/validation"
)

type TripInput struct {
	TripType            string          `json:"trip_type" validate:"required,oneof=local intercity corporate airport"`
	PickupAddress       string          `json:"pickup_address" validate:"required,max=300"`
	PickupLandmark      string          `json:"pickup_landmark" validate:"max=200"`
	DestinationAddress  string          `json:"destination_address" validate:"required,max=300"`
	DestinationLandmark string          `json:"destination_landmark" validate:"max=200"`
	ScheduledStart      time.Time       `json:"scheduled_start" validate:"required"`
	VehicleID           string          `json:"vehicle_id" validate:"required"`
	DriverID            string          `json:"driver_id" validate:"required"`
	PassengerName       string          `json:"passenger_name" validate:"required,min=2,max=100"`
	PassengerPhone      string          `json:"passenger_phone" validate:"required,min=10,max=15,digits"`
	PassengerEmail      string          `json:"passenger_email" validate:"omitempty,email"`
	BaseFare            float64         `json:"base_fare" validate:"gt=0"`
	Notes               string          `json:"notes" validate:"max=1000"`
	Route               json.RawMessage `json:"route"`
}

var tripTransitions = map[string][]string{
	models.TripScheduled:  {models.TripInProgress, models.TripCancelled},
	models.TripInProgress: {models.TripCompleted, models.TripCancelled},
}

// Trips is the owner's booked rides ordered by scheduled start.
type Trips struct{ w *Workspace }

func (c Trips) List(ctx context.Context) ([]models.Trip, error) {
	var out []models.Trip
	err := c.w.read("list trips", func() error {
		if err := c.w.trips.ensure(ctx); err != nil {
			return err
		}
		out = c.w.trips.list()
		return nil
	})
	return out, err
}

// Add books a trip. The vehicle and the driver must both be in the owner's
// fleet.
func (c Trips) Add(ctx context.Context, in TripInput) (*models.Trip, error) {
	in.PickupAddress = strings.TrimSpace(in.PickupAddress)
	in.DestinationAddress = strings.TrimSpace(in.DestinationAddress)
	in.PassengerName = strings.TrimSpace(in.PassengerName)
	in.PassengerPhone = strings.TrimSpace(in.PassengerPhone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var route []byte
	if raw := strings.TrimSpace(string(in.Route)); raw != "" && raw != "null" {
		b, err := geo.LineStringToWKB(raw)
		if err != nil {
			return nil, apperr.Validation("route", "route must be a GeoJSON LineString with at least two points")
		}
		route = b
	}

	var out models.Trip
	err := c.w.mutate("add trip", func() error {
		if err := c.w.trips.ensure(ctx); err != nil {
			return err
		}
		if _, err := c.w.vehicle(ctx, in.VehicleID); err != nil {
			return err
		}
		if _, err := c.w.driver(ctx, in.DriverID); err != nil {
			return err
		}
		t := models.Trip{
			OwnerID:             c.w.ownerID,
			TripType:            in.TripType,
			PickupAddress:       in.PickupAddress,
			PickupLandmark:      in.PickupLandmark,
			DestinationAddress:  in.DestinationAddress,
			DestinationLandmark: in.DestinationLandmark,
			ScheduledStart:      in.ScheduledStart,
			VehicleID:           in.VehicleID,
			DriverID:            in.DriverID,
			PassengerName:       in.PassengerName,
			PassengerPhone:      in.PassengerPhone,
			PassengerEmail:      in.PassengerEmail,
			BaseFare:            in.BaseFare,
			Notes:               in.Notes,
			Status:              models.TripScheduled,
			Route:               route,
		}
		if err := c.w.reg.store.CreateTrip(ctx, &t); err != nil {
			return err
		}
		c.w.trips.put(t)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves a trip along scheduled, in_progress, completed. Trips
// that have not completed can be cancelled.
func (c Trips) UpdateStatus(ctx context.Context, id, status string) (*models.Trip, error) {
	var out models.Trip
	err := c.w.mutate("update trip status", func() error {
		if err := c.w.trips.ensure(ctx); err != nil {
			return err
		}
		t, ok := c.w.trips.get(id)
		if !ok {
			return apperr.NotFound("trip")
		}
		if !canMove(t.Status, status) {
			return apperr.Conflict("trip cannot move from " + t.Status + " to " + status)
		}
		t.Status = status
		if err := c.w.reg.store.SaveTrip(ctx, &t); err != nil {
			return err
		}
		c.w.trips.put(t)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func canMove(from, to string) bool {
	for _, s := range tripTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (c Trips) Remove(ctx context.Context, id string) error {
	return c.w.mutate("remove trip", func() error {
		if err := c.w.trips.ensure(ctx); err != nil {
			return err
		}
		if _, ok := c.w.trips.get(id); !ok {
			return apperr.NotFound("trip")
		}
		if err := c.w.reg.store.DeleteTrip(ctx, c.w.ownerID, id); err != nil {
			return err
		}
		c.w.trips.drop(id)
		return nil
	})
}
