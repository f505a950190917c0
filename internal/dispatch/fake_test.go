package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeDirectory is a mutex-guarded in-memory Directory used by the engine,
// reclaimer and lifecycle tests. Reserve and Release are conditional, matching
// the contract the Postgres implementation honours.
type fakeDirectory struct {
	mu         sync.Mutex
	ambulances map[uuid.UUID]*Ambulance

	listAvailableErr error
	listBusyErr      error
	reserveErr       error

	// beforeReserve runs outside the lock just before a reservation attempt,
	// letting tests race the engine deterministically.
	beforeReserve func(id uuid.UUID)
}

func newFakeDirectory(ambulances ...Ambulance) *fakeDirectory {
	d := &fakeDirectory{ambulances: make(map[uuid.UUID]*Ambulance)}
	for _, a := range ambulances {
		amb := a
		d.ambulances[amb.ID] = &amb
	}
	return d
}

func (d *fakeDirectory) get(id uuid.UUID) Ambulance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.ambulances[id]
}

func (d *fakeDirectory) ListAvailableWithLocation(ctx context.Context) ([]Ambulance, error) {
	if d.listAvailableErr != nil {
		return nil, d.listAvailableErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Ambulance
	for _, a := range d.ambulances {
		if a.Status == StatusAvailable && a.Location != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListBusyWithExpiry(ctx context.Context) ([]Ambulance, error) {
	if d.listBusyErr != nil {
		return nil, d.listBusyErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Ambulance
	for _, a := range d.ambulances {
		if a.Status == StatusBusy && a.BusyUntil != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (d *fakeDirectory) Reserve(ctx context.Context, id uuid.UUID, busyUntil, now time.Time) (bool, error) {
	if d.reserveErr != nil {
		return false, d.reserveErr
	}
	if d.beforeReserve != nil {
		d.beforeReserve(id)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.ambulances[id]
	if !ok || a.Status != StatusAvailable {
		return false, nil
	}
	until := busyUntil
	assigned := now
	a.Status = StatusBusy
	a.BusyUntil = &until
	a.LastAssigned = &assigned
	return true, nil
}

func (d *fakeDirectory) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.ambulances[id]
	if !ok || a.Status != StatusBusy {
		return false, nil
	}
	a.Status = StatusAvailable
	a.BusyUntil = nil
	return true, nil
}

// markBusy flips an ambulance busy behind the engine's back, simulating a
// concurrent allocation winning between candidate read and reservation.
func (d *fakeDirectory) markBusy(id uuid.UUID, until time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.ambulances[id]
	a.Status = StatusBusy
	a.BusyUntil = &until
}

func ambulanceAt(id uuid.UUID, lat, lon string) Ambulance {
	return Ambulance{
		ID:       id,
		CallSign: "A-" + id.String()[:4],
		Type:     TypeBasicLifeSupport,
		Status:   StatusAvailable,
		Location: &Location{Latitude: lat, Longitude: lon},
	}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func mustID(s string) uuid.UUID {
	return uuid.MustParse(s)
}
