package server

import (
	"errors"
	"net/http"

	"pulse/dispatch/internal/dispatch"

	"github.com/google/uuid"
)

type CreateAmbulanceRequest struct {
	HospitalID string    `json:"hospital_id" validate:"required,uuid"`
	CallSign   string    `json:"call_sign" validate:"required,max=32"`
	Type       string    `json:"ambulance_type" validate:"required,oneof=bls als icu pta air water"`
	Location   *GeoPoint `json:"location,omitempty"`
}

type UpdateAmbulanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available offline"`
}

type UpdateAmbulanceLocationRequest struct {
	Latitude  string `json:"latitude" validate:"required,latitude"`
	Longitude string `json:"longitude" validate:"required,longitude"`
}

// handleListAmbulances godoc
// @Title List ambulances
// @Description Returns the fleet, including busy and offline units.
// @Resource Ambulances
// @Produce json
// @Success 200 {array} AmbulanceResponse
// @Failure 500 {object} APIError
// @Route /v1/ambulances [get]
func (s *Server) handleListAmbulances(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.paginate(r, 100)

	rows, err := s.ambulances.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list ambulances", err.Error())
		return
	}

	resp := make([]AmbulanceResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, mapAmbulance(row))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateAmbulance godoc
// @Title Create ambulance
// @Description Registers a new ambulance under a hospital. It starts available.
// @Resource Ambulances
// @Accept json
// @Produce json
// @Param request body CreateAmbulanceRequest true "Ambulance payload"
// @Success 201 {object} AmbulanceResponse
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/ambulances [post]
func (s *Server) handleCreateAmbulance(w http.ResponseWriter, r *http.Request) {
	var req CreateAmbulanceRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	hospitalID, err := uuid.Parse(req.HospitalID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidHospitalID, err.Error())
		return
	}

	ambType, err := dispatch.ParseAmbulanceType(req.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	params := dispatch.CreateAmbulanceParams{
		HospitalID: hospitalID,
		CallSign:   req.CallSign,
		Type:       ambType,
	}
	if req.Location != nil {
		// Location is optional at registration, but when present it must be a
		// complete, valid pair.
		if err := s.validate.Var(req.Location.Latitude, "required,latitude"); err != nil {
			s.writeError(w, http.StatusBadRequest, errInvalidPayload, "invalid latitude")
			return
		}
		if err := s.validate.Var(req.Location.Longitude, "required,longitude"); err != nil {
			s.writeError(w, http.StatusBadRequest, errInvalidPayload, "invalid longitude")
			return
		}
		params.Latitude = &req.Location.Latitude
		params.Longitude = &req.Location.Longitude
	}

	amb, err := s.ambulances.Create(r.Context(), params)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create ambulance", err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, mapAmbulance(amb))
}

// handleGetAmbulance godoc
// @Title Get ambulance
// @Description Returns a single ambulance by ID.
// @Resource Ambulances
// @Produce json
// @Param ambulanceID path string true "Ambulance ID"
// @Success 200 {object} AmbulanceResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/ambulances/{ambulanceID} [get]
func (s *Server) handleGetAmbulance(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "ambulanceID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidAmbulanceID, err.Error())
		return
	}

	amb, err := s.ambulances.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "ambulance not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch ambulance", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapAmbulance(amb))
}

// handleUpdateAmbulanceStatus godoc
// @Title Update ambulance status
// @Description Sets an ambulance available or offline. Busy is reserved for the
// @Description allocation path and cannot be set here.
// @Resource Ambulances
// @Accept json
// @Produce json
// @Param ambulanceID path string true "Ambulance ID"
// @Param request body UpdateAmbulanceStatusRequest true "Status payload"
// @Success 200 {object} AmbulanceResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/ambulances/{ambulanceID}/status [patch]
func (s *Server) handleUpdateAmbulanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "ambulanceID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidAmbulanceID, err.Error())
		return
	}

	var req UpdateAmbulanceStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	status, err := dispatch.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	amb, err := s.ambulances.SetStatus(r.Context(), id, status)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidStatus):
			s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		case isNotFound(err):
			s.writeError(w, http.StatusNotFound, "ambulance not found", nil)
		default:
			s.writeError(w, http.StatusInternalServerError, "failed to update ambulance status", err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusOK, mapAmbulance(amb))
}

// handleUpdateAmbulanceLocation godoc
// @Title Update ambulance location
// @Description Records the current position of an ambulance.
// @Resource Ambulances
// @Accept json
// @Produce json
// @Param ambulanceID path string true "Ambulance ID"
// @Param request body UpdateAmbulanceLocationRequest true "Location payload"
// @Success 200 {object} AmbulanceResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/ambulances/{ambulanceID}/location [patch]
func (s *Server) handleUpdateAmbulanceLocation(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "ambulanceID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidAmbulanceID, err.Error())
		return
	}

	var req UpdateAmbulanceLocationRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	amb, err := s.ambulances.SetLocation(r.Context(), id, req.Latitude, req.Longitude)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "ambulance not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to update ambulance location", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapAmbulance(amb))
}

// handleDeleteAmbulance godoc
// @Title Delete ambulance
// @Description Removes an ambulance from the fleet.
// @Resource Ambulances
// @Param ambulanceID path string true "Ambulance ID"
// @Success 204
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/ambulances/{ambulanceID} [delete]
func (s *Server) handleDeleteAmbulance(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "ambulanceID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidAmbulanceID, err.Error())
		return
	}

	if err := s.ambulances.Delete(r.Context(), id); err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "ambulance not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to delete ambulance", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
