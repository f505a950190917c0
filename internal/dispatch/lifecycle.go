package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse/dispatch/internal/geo"

	"github.com/rs/zerolog"
)

// Lifecycle records emergency requests and drives allocation for them.
type Lifecycle struct {
	requests RequestStore
	engine   *Engine
	clock    Clock
	log      zerolog.Logger
}

// NewLifecycle builds the emergency-request lifecycle. A nil clock defaults to
// SystemClock.
func NewLifecycle(requests RequestStore, engine *Engine, clock Clock, log zerolog.Logger) *Lifecycle {
	if clock == nil {
		clock = SystemClock
	}
	return &Lifecycle{requests: requests, engine: engine, clock: clock, log: log}
}

// SubmitParams describes a new emergency request.
type SubmitParams struct {
	Requester string
	Severity  Severity
	Latitude  string
	Longitude string
}

// Submit persists the request with its patient location (atomically, both or
// neither) and then attempts allocation. On success the assigned ambulance and
// the measured response time are attached to the returned request.
//
// When allocation fails the request is NOT rolled back: losing the emergency
// record is worse than leaving it unassigned pending an external retry. In
// that case Submit returns the persisted request together with the allocation
// error, so callers must inspect both values.
func (l *Lifecycle) Submit(ctx context.Context, params SubmitParams) (EmergencyRequest, error) {
	// Malformed geometry is rejected before anything is persisted.
	if _, _, err := geo.ParsePoint(params.Latitude, params.Longitude); err != nil {
		return EmergencyRequest{}, err
	}

	if !params.Severity.Valid() {
		params.Severity = SeverityMedium
	}

	req, err := l.requests.CreateWithLocation(ctx, CreateRequestParams{
		Requester: params.Requester,
		Severity:  params.Severity,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
	})
	if err != nil {
		return EmergencyRequest{}, fmt.Errorf("create emergency request: %w", err)
	}

	ambulanceID, err := l.engine.Allocate(ctx, params.Latitude, params.Longitude)
	if err != nil {
		if errors.Is(err, ErrNoAvailableAmbulance) {
			l.log.Warn().
				Str("request_id", req.ID.String()).
				Str("severity", req.Severity.String()).
				Msg("emergency request left unassigned")
		}
		return req, err
	}

	assignedAt := l.clock()
	responseTime := int32(assignedAt.Sub(req.CreatedAt) / time.Second)
	if responseTime < 0 {
		responseTime = 0
	}

	updated, err := l.requests.AttachAmbulance(ctx, req.ID, ambulanceID, responseTime)
	if err != nil {
		// The ambulance stays reserved; the reclaim sweep frees it once the
		// window lapses.
		return req, fmt.Errorf("attach ambulance %s: %w", ambulanceID, err)
	}

	l.log.Info().
		Str("request_id", updated.ID.String()).
		Str("ambulance_id", ambulanceID.String()).
		Int32("response_time_seconds", responseTime).
		Msg("emergency request assigned")
	return updated, nil
}
