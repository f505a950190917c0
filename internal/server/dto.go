package server

import (
	"time"

	"pulse/dispatch/internal/dispatch"
)

// GeoPoint carries coordinates as decimal strings, the form they travel in
// across the API boundary. They are parsed only inside the geo package.
type GeoPoint struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Env    string `json:"env"`
	Uptime string `json:"uptime"`
}

type AmbulanceResponse struct {
	ID           string     `json:"id"`
	HospitalID   string     `json:"hospital_id"`
	CallSign     string     `json:"call_sign"`
	Type         string     `json:"ambulance_type"`
	Status       string     `json:"status"`
	Location     *GeoPoint  `json:"location,omitempty"`
	BusyUntil    *time.Time `json:"busy_until,omitempty"`
	LastAssigned *time.Time `json:"last_assigned,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type HospitalResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contact_number,omitempty"`
	Address       string    `json:"address,omitempty"`
	Location      GeoPoint  `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type EmergencyResponse struct {
	ID                  string    `json:"id"`
	Requester           string    `json:"requester"`
	Severity            string    `json:"severity"`
	Location            GeoPoint  `json:"location"`
	AmbulanceID         *string   `json:"ambulance_id,omitempty"`
	ResponseTimeSeconds *int32    `json:"response_time_seconds,omitempty"`
	IsResolved          bool      `json:"is_resolved"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func mapAmbulance(a dispatch.Ambulance) AmbulanceResponse {
	resp := AmbulanceResponse{
		ID:           a.ID.String(),
		HospitalID:   a.HospitalID.String(),
		CallSign:     a.CallSign,
		Type:         a.Type.String(),
		Status:       a.Status.String(),
		BusyUntil:    a.BusyUntil,
		LastAssigned: a.LastAssigned,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Location != nil {
		resp.Location = &GeoPoint{Latitude: a.Location.Latitude, Longitude: a.Location.Longitude}
	}
	return resp
}

func mapHospital(h dispatch.Hospital) HospitalResponse {
	return HospitalResponse{
		ID:            h.ID.String(),
		Name:          h.Name,
		ContactNumber: h.ContactNumber,
		Address:       h.Address,
		Location:      GeoPoint{Latitude: h.Location.Latitude, Longitude: h.Location.Longitude},
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

func mapEmergency(req dispatch.EmergencyRequest) EmergencyResponse {
	resp := EmergencyResponse{
		ID:                  req.ID.String(),
		Requester:           req.Requester,
		Severity:            req.Severity.String(),
		Location:            GeoPoint{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude},
		ResponseTimeSeconds: req.ResponseTimeSeconds,
		IsResolved:          req.IsResolved,
		CreatedAt:           req.CreatedAt,
		UpdatedAt:           req.UpdatedAt,
	}
	if req.AmbulanceID != nil {
		id := req.AmbulanceID.String()
		resp.AmbulanceID = &id
	}
	return resp
}
