package models

import "github.com/lib/pq"

type Driver struct {
	Base
	OwnerID       string `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	FullName      string `gorm:"not null" json:"full_name"`
	LicenseNumber string `gorm:"not null" json:"license_number"`
	Phone         string `gorm:"size:10;not null" json:"phone"`
	// AssignedVehicles mirrors Vehicle.DriverID and is kept in sync by the assign/unassign operations.
	AssignedVehicles pq.StringArray `gorm:"type:text" json:"assigned_vehicles"`
}

func (d *Driver) HasVehicle(vehicleID string) bool {
	for _, id := range d.AssignedVehicles {
		if id == vehicleID {
			return true
		}
	}
	return false
}

func (d *Driver) AddVehicle(vehicleID string) {
	if !d.HasVehicle(vehicleID) {
		d.AssignedVehicles = append(d.AssignedVehicles, vehicleID)
	}
}

func (d *Driver) RemoveVehicle(vehicleID string) {
	out := pq.StringArray{}
	for _, id := range d.AssignedVehicles {
		if id != vehicleID {
			out = append(out, id)
		}
	}
	d.AssignedVehicles = out
}

// Clone returns a copy with its own assigned vehicle list.
func (d Driver) Clone() Driver {
	if d.AssignedVehicles != nil {
		d.AssignedVehicles = append(pq.StringArray{}, d.AssignedVehicles...)
	}
	return d
}
