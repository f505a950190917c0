package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pulse/dispatch/internal/dispatch"
	"pulse/dispatch/internal/geo"
)

type CreateEmergencyRequest struct {
	Severity string   `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Location GeoPoint `json:"location" validate:"required"`
}

type ResolveEmergencyRequest struct {
	IsResolved bool `json:"is_resolved"`
}

// handleCreateEmergency godoc
// @Title Create emergency request
// @Description Records an emergency request and synchronously assigns the nearest available ambulance.
// @Resource Emergencies
// @Accept json
// @Produce json
// @Param request body CreateEmergencyRequest true "Emergency payload"
// @Success 201 {object} EmergencyResponse
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/emergencies [post]
func (s *Server) handleCreateEmergency(w http.ResponseWriter, r *http.Request) {
	var req CreateEmergencyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	requester := ""
	claims, ok := GetUserFromContext(r.Context())
	if ok {
		requester = claims.PreferredUsername
		if requester == "" {
			requester = claims.Email
		}
	}

	severity := dispatch.Severity(req.Severity)
	result, err := s.lifecycle.Submit(r.Context(), dispatch.SubmitParams{
		Requester: requester,
		Severity:  severity,
		Latitude:  req.Location.Latitude,
		Longitude: req.Location.Longitude,
	})
	switch {
	case err == nil:
		// Best-effort notification; never blocks the response.
		if claims != nil && claims.Email != "" {
			go s.notifyAssignment(claims.Email, result)
		}
		s.writeJSON(w, http.StatusCreated, mapEmergency(result))
	case errors.Is(err, geo.ErrInvalidCoordinate):
		s.writeError(w, http.StatusBadRequest, "invalid coordinates", err.Error())
	case errors.Is(err, dispatch.ErrNoAvailableAmbulance):
		// The request itself is persisted and awaits an external retry.
		s.writeError(w, http.StatusBadRequest, "no available ambulance", map[string]string{
			"request_id": result.ID.String(),
		})
	default:
		s.writeError(w, http.StatusInternalServerError, "failed to create emergency request", err.Error())
	}
}

// notifyAssignment emails the requester that an ambulance is on its way.
func (s *Server) notifyAssignment(recipient string, req dispatch.EmergencyRequest) {
	if !s.mail.Enabled() || req.AmbulanceID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	callSign := req.AmbulanceID.String()
	if amb, err := s.ambulances.Get(ctx, *req.AmbulanceID); err == nil {
		callSign = amb.CallSign
	}

	if err := s.mail.SendAssignmentNotice(ctx, recipient, callSign,
		"Please keep your phone reachable."); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID.String()).Msg("assignment notice not sent")
		return
	}
	s.log.Info().Str("request_id", req.ID.String()).Msg("assignment notice sent")
}

// handleListEmergencies godoc
// @Title List emergency requests
// @Description Returns emergency requests, newest first.
// @Resource Emergencies
// @Produce json
// @Success 200 {array} EmergencyResponse
// @Failure 500 {object} APIError
// @Route /v1/emergencies [get]
func (s *Server) handleListEmergencies(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.paginate(r, 50)

	rows, err := s.emergencies.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list emergency requests", err.Error())
		return
	}

	resp := make([]EmergencyResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, mapEmergency(row))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetEmergency godoc
// @Title Get emergency request
// @Description Returns a single emergency request by ID.
// @Resource Emergencies
// @Produce json
// @Param emergencyID path string true "Emergency ID"
// @Success 200 {object} EmergencyResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/emergencies/{emergencyID} [get]
func (s *Server) handleGetEmergency(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "emergencyID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidEmergencyID, err.Error())
		return
	}

	req, err := s.emergencies.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "emergency request not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch emergency request", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapEmergency(req))
}

// handleResolveEmergency godoc
// @Title Resolve emergency request
// @Description Administrative toggle for the resolution flag.
// @Resource Emergencies
// @Accept json
// @Produce json
// @Param emergencyID path string true "Emergency ID"
// @Param request body ResolveEmergencyRequest true "Resolution payload"
// @Success 200 {object} EmergencyResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/emergencies/{emergencyID}/resolve [patch]
func (s *Server) handleResolveEmergency(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseUUIDParam(r, "emergencyID")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidEmergencyID, err.Error())
		return
	}

	var req ResolveEmergencyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	updated, err := s.emergencies.SetResolved(r.Context(), id, req.IsResolved)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "emergency request not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to update emergency request", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, mapEmergency(updated))
}
