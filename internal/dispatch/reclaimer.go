package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Reclaimer sweeps busy ambulances whose reservation window has elapsed and
// returns them to available. It runs at the start of every allocation attempt
// and may additionally run on a periodic schedule for hygiene; allocation
// correctness never depends on the schedule alone.
type Reclaimer struct {
	dir Directory
	log zerolog.Logger
}

// NewReclaimer builds a reclaimer over the given directory.
func NewReclaimer(dir Directory, log zerolog.Logger) *Reclaimer {
	return &Reclaimer{dir: dir, log: log}
}

// ReclaimExpired releases every busy ambulance whose busyUntil lies strictly
// before now. Each release is a conditional write, so a sweep racing an
// in-flight reservation on the same ambulance cannot corrupt its state.
// Idempotent: a second run with no newly expired ambulances releases nothing.
func (r *Reclaimer) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	busy, err := r.dir.ListBusyWithExpiry(ctx)
	if err != nil {
		return 0, fmt.Errorf("list busy ambulances: %w", err)
	}

	reclaimed := 0
	for _, amb := range busy {
		if amb.BusyUntil == nil || !now.After(*amb.BusyUntil) {
			continue
		}
		ok, err := r.dir.Release(ctx, amb.ID)
		if err != nil {
			return reclaimed, fmt.Errorf("release ambulance %s: %w", amb.ID, err)
		}
		if ok {
			reclaimed++
			r.log.Debug().
				Str("ambulance_id", amb.ID.String()).
				Time("busy_until", *amb.BusyUntil).
				Msg("reclaimed expired reservation")
		}
	}

	if reclaimed > 0 {
		reclaimedAmbulancesTotal.Add(float64(reclaimed))
	}
	return reclaimed, nil
}
