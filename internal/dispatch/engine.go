package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"pulse/dispatch/internal/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BusyWindow is the fixed reservation window applied on assignment.
const BusyWindow = 30 * time.Minute

// Engine matches an emergency location to the nearest available ambulance and
// reserves it. One successful call flips exactly one ambulance
// available->busy; a failed call leaves the directory untouched.
type Engine struct {
	dir       Directory
	reclaimer *Reclaimer
	clock     Clock
	log       zerolog.Logger
}

// NewEngine builds an allocation engine. A nil clock defaults to SystemClock.
func NewEngine(dir Directory, reclaimer *Reclaimer, clock Clock, log zerolog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{dir: dir, reclaimer: reclaimer, clock: clock, log: log}
}

type candidate struct {
	amb        Ambulance
	distanceKm float64
}

// Allocate picks the nearest available ambulance to the given patient
// coordinates and reserves it for BusyWindow. Lost reservation races are
// resolved internally by falling through to the next-nearest candidate.
//
// Returns geo.ErrInvalidCoordinate for malformed input (before any state
// mutation), ErrNoAvailableAmbulance when the candidate set is empty or fully
// contended away, and wrapped repository errors otherwise.
func (e *Engine) Allocate(ctx context.Context, latitude, longitude string) (uuid.UUID, error) {
	if _, _, err := geo.ParsePoint(latitude, longitude); err != nil {
		allocationsTotal.WithLabelValues(outcomeInvalidCoordinate).Inc()
		return uuid.Nil, err
	}

	now := e.clock()
	if _, err := e.reclaimer.ReclaimExpired(ctx, now); err != nil {
		allocationsTotal.WithLabelValues(outcomeError).Inc()
		return uuid.Nil, fmt.Errorf("reclaim expired: %w", err)
	}

	available, err := e.dir.ListAvailableWithLocation(ctx)
	if err != nil {
		allocationsTotal.WithLabelValues(outcomeError).Inc()
		return uuid.Nil, fmt.Errorf("list available ambulances: %w", err)
	}

	candidates := e.rank(latitude, longitude, available)
	if len(candidates) == 0 {
		allocationsTotal.WithLabelValues(outcomeNoAmbulance).Inc()
		return uuid.Nil, ErrNoAvailableAmbulance
	}

	for i, c := range candidates {
		ok, err := e.dir.Reserve(ctx, c.amb.ID, now.Add(BusyWindow), now)
		if err != nil {
			allocationsTotal.WithLabelValues(outcomeError).Inc()
			return uuid.Nil, fmt.Errorf("reserve ambulance %s: %w", c.amb.ID, err)
		}
		if !ok {
			// Lost the race to a concurrent allocation; not a caller-visible
			// error, fall through to the next-nearest candidate.
			reservationConflictsTotal.Inc()
			e.log.Debug().
				Str("ambulance_id", c.amb.ID.String()).
				Int("rank", i).
				Msg("reservation lost race, reselecting")
			continue
		}

		allocationsTotal.WithLabelValues(outcomeAssigned).Inc()
		assignedDistanceKm.Observe(c.distanceKm)
		e.log.Info().
			Str("ambulance_id", c.amb.ID.String()).
			Float64("distance_km", c.distanceKm).
			Time("busy_until", now.Add(BusyWindow)).
			Msg("ambulance reserved")
		return c.amb.ID, nil
	}

	allocationsTotal.WithLabelValues(outcomeNoAmbulance).Inc()
	return uuid.Nil, ErrNoAvailableAmbulance
}

// rank computes the distance to every candidate and orders them ascending,
// breaking distance ties by ascending ambulance id so selection is
// deterministic. Candidates whose stored coordinates fail to parse cannot be
// ranked and are skipped.
func (e *Engine) rank(latitude, longitude string, available []Ambulance) []candidate {
	candidates := make([]candidate, 0, len(available))
	for _, amb := range available {
		if amb.Location == nil {
			continue
		}
		d, err := geo.DistanceKm(latitude, longitude, amb.Location.Latitude, amb.Location.Longitude)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("ambulance_id", amb.ID.String()).
				Msg("skipping candidate with malformed stored location")
			continue
		}
		candidates = append(candidates, candidate{amb: amb, distanceKm: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distanceKm != candidates[j].distanceKm {
			return candidates[i].distanceKm < candidates[j].distanceKm
		}
		return bytes.Compare(candidates[i].amb.ID[:], candidates[j].amb.ID[:]) < 0
	})
	return candidates
}
