package models

import (
	"strings"
	"time"
)

// Document statuses
const (
	DocUploaded = "uploaded"
	DocMissing  = "missing"
	DocExpired  = "expired"
)

// DocumentKinds lists the compliance documents every vehicle carries.
var DocumentKinds = []string{"pollution", "registration", "insurance", "license"}

// DefaultVehicleModel is used when a vehicle is registered without a model.
const DefaultVehicleModel = "Not specified"

// NormalizeRegistration upper-cases a registration number and strips spaces
// and hyphens.
func NormalizeRegistration(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

type DocumentSlot struct {
	Status     string     `gorm:"size:10;not null;default:missing" json:"status"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

type Documents struct {
	Pollution    DocumentSlot `gorm:"embedded;embeddedPrefix:pollution_" json:"pollution"`
	Registration DocumentSlot `gorm:"embedded;embeddedPrefix:registration_" json:"registration"`
	Insurance    DocumentSlot `gorm:"embedded;embeddedPrefix:insurance_" json:"insurance"`
	License      DocumentSlot `gorm:"embedded;embeddedPrefix:license_" json:"license"`
}

// MissingDocuments returns a document set with every slot missing.
func MissingDocuments() Documents {
	m := DocumentSlot{Status: DocMissing}
	return Documents{Pollution: m, Registration: m, Insurance: m, License: m}
}

// Slot returns the slot for kind, or nil for an unknown kind.
func (d *Documents) Slot(kind string) *DocumentSlot {
	switch kind {
	case "pollution":
		return &d.Pollution
	case "registration":
		return &d.Registration
	case "insurance":
		return &d.Insurance
	case "license":
		return &d.License
	}
	return nil
}

// Uploaded counts slots in the uploaded state.
func (d Documents) Uploaded() int {
	n := 0
	for _, s := range []DocumentSlot{d.Pollution, d.Registration, d.Insurance, d.License} {
		if s.Status == DocUploaded {
			n++
		}
	}
	return n
}

type Vehicle struct {
	Base
	OwnerID            string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_vehicle_owner_reg" json:"owner_id"`
	RegistrationNumber string     `gorm:"size:20;not null;uniqueIndex:idx_vehicle_owner_reg" json:"registration_number"`
	Model              string     `json:"model"`
	Balance            float64    `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	FastagLinked       bool       `json:"fastag_linked"`
	GPSLinked          bool       `gorm:"column:gps_linked" json:"gps_linked"`
	DriverID           *string    `gorm:"type:varchar(36);index" json:"driver_id"`
	LastService        *time.Time `json:"last_service,omitempty"`
	Challans           int        `gorm:"not null;default:0" json:"challans"`
	Documents          Documents  `gorm:"embedded" json:"documents"`
}

// Clone returns a copy that shares no pointers with v.
func (v Vehicle) Clone() Vehicle {
	v.DriverID = clonePtr(v.DriverID)
	v.LastService = clonePtr(v.LastService)
	for _, s := range []*DocumentSlot{&v.Documents.Pollution, &v.Documents.Registration, &v.Documents.Insurance, &v.Documents.License} {
		s.ExpiryDate = clonePtr(s.ExpiryDate)
	}
	return v
}
