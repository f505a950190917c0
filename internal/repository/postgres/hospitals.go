package postgres

import (
	"context"
	"fmt"

	"pulse/dispatch/internal/dispatch"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const hospitalColumns = `id, name, contact_number, address, latitude, longitude, created_at, updated_at`

// HospitalRepo persists hospitals.
type HospitalRepo struct {
	pool *pgxpool.Pool
}

// NewHospitalRepo builds a hospital repository over the given pool.
func NewHospitalRepo(pool *pgxpool.Pool) *HospitalRepo {
	return &HospitalRepo{pool: pool}
}

func scanHospital(row pgx.Row) (dispatch.Hospital, error) {
	var h dispatch.Hospital
	err := row.Scan(&h.ID, &h.Name, &h.ContactNumber, &h.Address,
		&h.Location.Latitude, &h.Location.Longitude, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return dispatch.Hospital{}, err
	}
	return h, nil
}

// Create registers a new hospital.
func (r *HospitalRepo) Create(ctx context.Context, params dispatch.CreateHospitalParams) (dispatch.Hospital, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO hospitals (name, contact_number, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+hospitalColumns,
		params.Name, params.ContactNumber, params.Address, params.Latitude, params.Longitude)
	h, err := scanHospital(row)
	if err != nil {
		return dispatch.Hospital{}, fmt.Errorf("create hospital: %w", err)
	}
	return h, nil
}

// List returns every hospital, newest first.
func (r *HospitalRepo) List(ctx context.Context, limit, offset int32) ([]dispatch.Hospital, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+hospitalColumns+`
		FROM hospitals
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	defer rows.Close()

	var out []dispatch.Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Get returns a single hospital; pgx.ErrNoRows when absent.
func (r *HospitalRepo) Get(ctx context.Context, id uuid.UUID) (dispatch.Hospital, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospitals WHERE id = $1`, id)
	return scanHospital(row)
}

// Update replaces the editable hospital fields.
func (r *HospitalRepo) Update(ctx context.Context, id uuid.UUID, params dispatch.CreateHospitalParams) (dispatch.Hospital, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE hospitals
		SET name = $2, contact_number = $3, address = $4, latitude = $5, longitude = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+hospitalColumns,
		id, params.Name, params.ContactNumber, params.Address, params.Latitude, params.Longitude)
	return scanHospital(row)
}

// Delete removes a hospital and, through the FK cascade, its ambulances.
func (r *HospitalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hospitals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete hospital: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
