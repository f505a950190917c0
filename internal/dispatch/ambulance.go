// Package dispatch holds the allocation core: the ambulance directory
// contract, the expiry reclaimer, the nearest-ambulance allocation engine and
// the emergency-request lifecycle that ties them together.
package dispatch

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the availability state of an ambulance.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

var ErrInvalidStatus = errors.New("invalid ambulance status")

// ParseStatus normalizes (lowercases+trims) and validates an ambulance status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether the status is one of the allowed status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusAvailable, StatusBusy, StatusOffline:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// AmbulanceType classifies the medical capability of a vehicle.
type AmbulanceType string

const (
	TypeBasicLifeSupport    AmbulanceType = "bls"
	TypeAdvancedLifeSupport AmbulanceType = "als"
	TypeIntensiveCareUnit   AmbulanceType = "icu"
	TypePatientTransport    AmbulanceType = "pta"
	TypeAirAmbulance        AmbulanceType = "air"
	TypeWaterAmbulance      AmbulanceType = "water"
)

var ErrInvalidAmbulanceType = errors.New("invalid ambulance type")

// ParseAmbulanceType normalizes and validates an ambulance type string.
func ParseAmbulanceType(in string) (AmbulanceType, error) {
	t := AmbulanceType(strings.ToLower(strings.TrimSpace(in)))
	if t.Valid() {
		return t, nil
	}
	return "", ErrInvalidAmbulanceType
}

// Valid reports whether the ambulance type is one of the allowed constants.
func (t AmbulanceType) Valid() bool {
	switch t {
	case TypeBasicLifeSupport, TypeAdvancedLifeSupport, TypeIntensiveCareUnit,
		TypePatientTransport, TypeAirAmbulance, TypeWaterAmbulance:
		return true
	default:
		return false
	}
}

// String returns the string representation of the AmbulanceType.
func (t AmbulanceType) String() string {
	return string(t)
}

// Location is a latitude/longitude pair carried as decimal strings. Parsing to
// float happens only inside the geo package.
type Location struct {
	Latitude  string
	Longitude string
}

// Ambulance is the directory-owned view of a vehicle. The allocation engine
// never holds one beyond a single allocation call; the directory is the sole
// authority on current status.
//
// Invariant: Status == StatusBusy coincides with BusyUntil being set, and
// StatusAvailable implies BusyUntil is nil. The reclaim sweep is the only
// component permitted to clear BusyUntil outside an administrative override.
type Ambulance struct {
	ID           uuid.UUID
	HospitalID   uuid.UUID
	CallSign     string
	Type         AmbulanceType
	Status       Status
	Location     *Location
	BusyUntil    *time.Time
	LastAssigned *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
