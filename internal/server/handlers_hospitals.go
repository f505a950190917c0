package server

import (
	"net/http"

	"pulse/dispatch/internal/dispatch"
)

type HospitalRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	ContactNumber string `json:"contact_number" validate:"omitempty,max=32"`
	Address       string `json:"address" validate:"omitempty,max=255"`
	Latitude      string `json:"latitude" validate:"required,latitude"`
	Longitude     string `json:"longitude" validate:"required,longitude"`
}

func (req HospitalRequest) params() dispatch.CreateHospitalParams {
	return dispatch.CreateHospitalParams{
		Name:          req.Name,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}
}

// handleListHospitals godoc
// @Title List hospitals
// @Description Returns registered hospitals.
// @Resource Hospitals
// @Produce json
// @Success 200 {array} HospitalResponse
// @Failure 500 {object} APIError
// @Route /v1/hospitals [get]
func (s *Server) handleListHospitals(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.paginate(r, 100)

	rows, err := s.hospitals.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list hospitals", err.Error())
		return
	}

	resp := make([]HospitalResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, mapHospital(row))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateHospital godoc
// @Title Create hospital
// @Description Registers a hospital with its fixed location.
// @Resource Hospitals
// @Accept json
// @Produce json
// @Param request body HospitalRequest true "Hospital payload"
// @Success 201 {object} HospitalResponse
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/hospitals [post]
func (s *Server) handleCreateHospital(w http.ResponseWriter, r *http.Request) {
	var req HospitalRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	hospital, err := s.hospitals.Create(r.Context(), req.params())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create hospital", err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, mapHospital(hospital))
}

// handleGetHospital godoc
// @Title Get hospital
// @Description Returns a single hospital by ID.
// @Resource Hospitals
// @Produce json
// @Param hospitalID path string true "Hospital ID"
// @Success 200 {object} HospitalResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/hospitals/{hospitalID} [get]
func (s *Server) handleGetHospital(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "hospitalID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidHospitalID, err.Error())
		return
	}

	hospital, err := s.hospitals.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "hospital not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch hospital", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapHospital(hospital))
}

// handleUpdateHospital godoc
// @Title Update hospital
// @Description Replaces the hospital record with the supplied payload.
// @Resource Hospitals
// @Accept json
// @Produce json
// @Param hospitalID path string true "Hospital ID"
// @Param request body HospitalRequest true "Hospital payload"
// @Success 200 {object} HospitalResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/hospitals/{hospitalID} [put]
func (s *Server) handleUpdateHospital(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "hospitalID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidHospitalID, err.Error())
		return
	}

	var req HospitalRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	hospital, err := s.hospitals.Update(r.Context(), id, req.params())
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "hospital not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to update hospital", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapHospital(hospital))
}

// handleDeleteHospital godoc
// @Title Delete hospital
// @Description Removes a hospital. Fails while ambulances still reference it.
// @Resource Hospitals
// @Param hospitalID path string true "Hospital ID"
// @Success 204
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/hospitals/{hospitalID} [delete]
func (s *Server) handleDeleteHospital(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "hospitalID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidHospitalID, err.Error())
		return
	}

	if err := s.hospitals.Delete(r.Context(), id); err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "hospital not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to delete hospital", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
