package models

import "time"

// Trip types
const (
	TripLocal     = "local"
	TripIntercity = "intercity"
	TripCorporate = "corporate"
	TripAirport   = "airport"
)

// Trip statuses
const (
	TripScheduled  = "scheduled"
	TripInProgress = "in_progress"
	TripCompleted  = "completed"
	TripCancelled  = "cancelled"
)

// Trip is a booked ride for a vehicle and driver of the same owner.
type Trip struct {
	Base
	OwnerID             string    `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	TripType            string    `gorm:"size:10;not null" json:"trip_type"`
	PickupAddress       string    `gorm:"not null" json:"pickup_address"`
	PickupLandmark      string    `json:"pickup_landmark,omitempty"`
	DestinationAddress  string    `gorm:"not null" json:"destination_address"`
	DestinationLandmark string    `json:"destination_landmark,omitempty"`
	ScheduledStart      time.Time `gorm:"not null" json:"scheduled_start"`
	VehicleID           string    `gorm:"type:varchar(36);not null;index" json:"vehicle_id"`
	DriverID            string    `gorm:"type:varchar(36);not null;index" json:"driver_id"`
	PassengerName       string    `gorm:"not null" json:"passenger_name"`
	PassengerPhone      string    `gorm:"not null" json:"passenger_phone"`
	PassengerEmail      string    `json:"passenger_email,omitempty"`
	BaseFare            float64   `gorm:"type:numeric(12,2);not null" json:"base_fare"`
	Notes               string    `json:"notes,omitempty"`
	Status              string    `gorm:"size:12;not null;default:scheduled" json:"status"`

	// Route is a LineString stored as WKB; the API exposes it as GeoJSON.
	Route []byte `json:"-"`
}

func (t Trip) Clone() Trip {
	if t.Route != nil {
		t.Route = append([]byte(nil), t.Route...)
	}
	return t
}
