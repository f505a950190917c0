// Package postgres implements the dispatch directory and stores on top of a
// pgx connection pool. Status transitions are conditional updates checked via
// rows-affected, which is what makes concurrent reservation race-safe.
package postgres

import (
	"context"
	"fmt"
	"time"

	"pulse/dispatch/internal/dispatch"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ambulanceColumns = `id, hospital_id, call_sign, ambulance_type, status,
	latitude, longitude, busy_until, last_assigned, created_at, updated_at`

// AmbulanceRepo is the Postgres-backed ambulance directory.
type AmbulanceRepo struct {
	pool *pgxpool.Pool
}

// NewAmbulanceRepo builds an ambulance repository over the given pool.
func NewAmbulanceRepo(pool *pgxpool.Pool) *AmbulanceRepo {
	return &AmbulanceRepo{pool: pool}
}

func scanAmbulance(row pgx.Row) (dispatch.Ambulance, error) {
	var (
		a        dispatch.Ambulance
		typ      string
		status   string
		lat, lon *string
	)
	err := row.Scan(&a.ID, &a.HospitalID, &a.CallSign, &typ, &status,
		&lat, &lon, &a.BusyUntil, &a.LastAssigned, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return dispatch.Ambulance{}, err
	}
	a.Type = dispatch.AmbulanceType(typ)
	a.Status = dispatch.Status(status)
	if lat != nil && lon != nil {
		a.Location = &dispatch.Location{Latitude: *lat, Longitude: *lon}
	}
	return a, nil
}

func (r *AmbulanceRepo) queryAmbulances(ctx context.Context, query string, args ...any) ([]dispatch.Ambulance, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dispatch.Ambulance
	for rows.Next() {
		a, err := scanAmbulance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAvailableWithLocation returns the allocation candidate set.
func (r *AmbulanceRepo) ListAvailableWithLocation(ctx context.Context) ([]dispatch.Ambulance, error) {
	query := `SELECT ` + ambulanceColumns + `
		FROM ambulances
		WHERE status = 'available' AND latitude IS NOT NULL
		ORDER BY id`
	ambulances, err := r.queryAmbulances(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list available ambulances: %w", err)
	}
	return ambulances, nil
}

// ListBusyWithExpiry returns reservations eligible for the reclaim sweep.
func (r *AmbulanceRepo) ListBusyWithExpiry(ctx context.Context) ([]dispatch.Ambulance, error) {
	query := `SELECT ` + ambulanceColumns + `
		FROM ambulances
		WHERE status = 'busy' AND busy_until IS NOT NULL
		ORDER BY id`
	ambulances, err := r.queryAmbulances(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list busy ambulances: %w", err)
	}
	return ambulances, nil
}

// Reserve flips an ambulance available->busy only if it is still available at
// the moment of the write. A read-then-unconditional-write here would let two
// concurrent allocations both claim the same vehicle.
func (r *AmbulanceRepo) Reserve(ctx context.Context, id uuid.UUID, busyUntil, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ambulances
		SET status = 'busy', busy_until = $2, last_assigned = $3, updated_at = $3
		WHERE id = $1 AND status = 'available'`,
		id, busyUntil, now)
	if err != nil {
		return false, fmt.Errorf("reserve ambulance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release flips an ambulance busy->available and clears its window, only if it
// is still busy. Location and last_assigned are untouched.
func (r *AmbulanceRepo) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ambulances
		SET status = 'available', busy_until = NULL, updated_at = now()
		WHERE id = $1 AND status = 'busy'`,
		id)
	if err != nil {
		return false, fmt.Errorf("release ambulance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Create registers a new ambulance, available by default.
func (r *AmbulanceRepo) Create(ctx context.Context, params dispatch.CreateAmbulanceParams) (dispatch.Ambulance, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ambulances (hospital_id, call_sign, ambulance_type, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+ambulanceColumns,
		params.HospitalID, params.CallSign, params.Type.String(), params.Latitude, params.Longitude)
	a, err := scanAmbulance(row)
	if err != nil {
		return dispatch.Ambulance{}, fmt.Errorf("create ambulance: %w", err)
	}
	return a, nil
}

// List returns every ambulance, newest first.
func (r *AmbulanceRepo) List(ctx context.Context, limit, offset int32) ([]dispatch.Ambulance, error) {
	query := `SELECT ` + ambulanceColumns + `
		FROM ambulances
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	ambulances, err := r.queryAmbulances(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ambulances: %w", err)
	}
	return ambulances, nil
}

// Get returns a single ambulance; pgx.ErrNoRows when absent.
func (r *AmbulanceRepo) Get(ctx context.Context, id uuid.UUID) (dispatch.Ambulance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ambulanceColumns+` FROM ambulances WHERE id = $1`, id)
	return scanAmbulance(row)
}

// SetStatus is the administrative status override. Only available and offline
// are settable here: busy is entered exclusively through Reserve. Moving to
// available clears busy_until, the one permitted non-reclaim clear.
func (r *AmbulanceRepo) SetStatus(ctx context.Context, id uuid.UUID, status dispatch.Status) (dispatch.Ambulance, error) {
	if status == dispatch.StatusBusy {
		return dispatch.Ambulance{}, dispatch.ErrInvalidStatus
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE ambulances
		SET status = $2, busy_until = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+ambulanceColumns,
		id, status.String())
	return scanAmbulance(row)
}

// SetLocation updates the last-known location.
func (r *AmbulanceRepo) SetLocation(ctx context.Context, id uuid.UUID, latitude, longitude string) (dispatch.Ambulance, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE ambulances
		SET latitude = $2, longitude = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+ambulanceColumns,
		id, latitude, longitude)
	return scanAmbulance(row)
}

// Delete removes an ambulance.
func (r *AmbulanceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ambulances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ambulance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
