package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoAvailableAmbulance is returned when no eligible candidate remained
// after reclaim and contention resolution.
var ErrNoAvailableAmbulance = errors.New("no available ambulance")

// Clock supplies the current time. Injected so expiry and reservation windows
// are testable with fixed time.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Directory is the read/write view over ambulance availability state. It is
// the sole lock domain for status transitions: Reserve and Release must be
// conditional writes so that concurrent allocations and the reclaim sweep
// cannot interleave into a double reservation.
type Directory interface {
	// ListAvailableWithLocation returns every ambulance with status available
	// and a known location. The read is unguarded; staleness is absorbed by
	// the conditional Reserve.
	ListAvailableWithLocation(ctx context.Context) ([]Ambulance, error)

	// ListBusyWithExpiry returns every busy ambulance that has a busy-until
	// timestamp set.
	ListBusyWithExpiry(ctx context.Context) ([]Ambulance, error)

	// Reserve transitions an ambulance available->busy, setting busyUntil and
	// lastAssigned, only if it is still available at the moment of the write.
	// Returns false when the race was lost or the ambulance no longer exists.
	Reserve(ctx context.Context, id uuid.UUID, busyUntil, now time.Time) (bool, error)

	// Release transitions an ambulance busy->available and clears busyUntil,
	// only if it is still busy. LastAssigned and location are untouched.
	Release(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateRequestParams carries the fields needed to persist a new emergency
// request together with its patient location.
type CreateRequestParams struct {
	Requester string
	Severity  Severity
	Latitude  string
	Longitude string
}

// RequestStore persists emergency requests. CreateWithLocation must write the
// request and its location atomically: both or neither.
type RequestStore interface {
	CreateWithLocation(ctx context.Context, params CreateRequestParams) (EmergencyRequest, error)
	AttachAmbulance(ctx context.Context, requestID, ambulanceID uuid.UUID, responseTimeSeconds int32) (EmergencyRequest, error)
}

// CreateAmbulanceParams carries the administrative ambulance-create payload.
type CreateAmbulanceParams struct {
	HospitalID uuid.UUID
	CallSign   string
	Type       AmbulanceType
	Latitude   *string
	Longitude  *string
}

// CreateHospitalParams carries the administrative hospital payload, used for
// both create and full update.
type CreateHospitalParams struct {
	Name          string
	ContactNumber string
	Address       string
	Latitude      string
	Longitude     string
}
