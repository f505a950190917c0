package dispatch

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity grades an emergency request.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var ErrInvalidSeverity = errors.New("invalid severity")

// ParseSeverity normalizes and validates a severity string.
func ParseSeverity(in string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(in)))
	if s.Valid() {
		return s, nil
	}
	return "", ErrInvalidSeverity
}

// Valid reports whether the severity is one of the allowed constants.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Severity.
func (s Severity) String() string {
	return string(s)
}

// EmergencyRequest records an incoming emergency, its patient location and the
// outcome of allocation. The location is immutable after creation. A request
// that could not be assigned stays persisted with AmbulanceID nil so it can be
// retried externally.
type EmergencyRequest struct {
	ID                  uuid.UUID
	Requester           string
	Severity            Severity
	Location            Location
	AmbulanceID         *uuid.UUID
	ResponseTimeSeconds *int32
	IsResolved          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Hospital owns ambulances. Ownership matters for CRUD only; allocation is
// indifferent to it.
type Hospital struct {
	ID            uuid.UUID
	Name          string
	ContactNumber string
	Address       string
	Location      Location
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
