package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type APIError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

const (
	errInvalidPayload     = "invalid payload"
	errInvalidAmbulanceID = "invalid ambulance id"
	errInvalidHospitalID  = "invalid hospital id"
	errInvalidEmergencyID = "invalid emergency id"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details interface{}) {
	s.writeJSON(w, status, APIError{Error: message, Details: details})
}

func (s *Server) decodeAndValidate(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, errors.New("missing id")
	}
	return uuid.Parse(raw)
}

func (s *Server) paginate(r *http.Request, defaultLimit int32) (limit int32, offset int32) {
	query := r.URL.Query()
	limit = defaultLimit
	offset = 0
	if l := query.Get("limit"); l != "" {
		if parsed, err := parseInt32(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := query.Get("offset"); o != "" {
		if parsed, err := parseInt32(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return
}

func parseInt32(value string) (int32, error) {
	if strings.TrimSpace(value) == "" {
		return 0, errors.New("empty value")
	}
	n64, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n64), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
