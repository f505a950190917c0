package postgres

import (
	"context"
	"fmt"

	"pulse/dispatch/internal/dispatch"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const emergencyColumns = `id, requester, severity, latitude, longitude,
	ambulance_id, response_time_seconds, is_resolved, created_at, updated_at`

// EmergencyRepo persists emergency requests.
type EmergencyRepo struct {
	pool *pgxpool.Pool
}

// NewEmergencyRepo builds an emergency-request repository over the given pool.
func NewEmergencyRepo(pool *pgxpool.Pool) *EmergencyRepo {
	return &EmergencyRepo{pool: pool}
}

func scanEmergency(row pgx.Row) (dispatch.EmergencyRequest, error) {
	var (
		req      dispatch.EmergencyRequest
		severity string
	)
	err := row.Scan(&req.ID, &req.Requester, &severity, &req.Location.Latitude,
		&req.Location.Longitude, &req.AmbulanceID, &req.ResponseTimeSeconds,
		&req.IsResolved, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return dispatch.EmergencyRequest{}, err
	}
	req.Severity = dispatch.Severity(severity)
	return req, nil
}

// CreateWithLocation inserts the request and its patient location. The
// location lives in the same row, so both-or-neither holds for free.
func (r *EmergencyRepo) CreateWithLocation(ctx context.Context, params dispatch.CreateRequestParams) (dispatch.EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO emergency_requests (requester, severity, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING `+emergencyColumns,
		params.Requester, params.Severity.String(), params.Latitude, params.Longitude)
	req, err := scanEmergency(row)
	if err != nil {
		return dispatch.EmergencyRequest{}, fmt.Errorf("create emergency request: %w", err)
	}
	return req, nil
}

// AttachAmbulance records the allocation outcome on the request.
func (r *EmergencyRepo) AttachAmbulance(ctx context.Context, requestID, ambulanceID uuid.UUID, responseTimeSeconds int32) (dispatch.EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE emergency_requests
		SET ambulance_id = $2, response_time_seconds = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+emergencyColumns,
		requestID, ambulanceID, responseTimeSeconds)
	return scanEmergency(row)
}

// Get returns a single request; pgx.ErrNoRows when absent.
func (r *EmergencyRepo) Get(ctx context.Context, id uuid.UUID) (dispatch.EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+emergencyColumns+` FROM emergency_requests WHERE id = $1`, id)
	return scanEmergency(row)
}

// List returns requests newest first.
func (r *EmergencyRepo) List(ctx context.Context, limit, offset int32) ([]dispatch.EmergencyRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+emergencyColumns+`
		FROM emergency_requests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list emergency requests: %w", err)
	}
	defer rows.Close()

	var out []dispatch.EmergencyRequest
	for rows.Next() {
		req, err := scanEmergency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// SetResolved toggles the administrative resolution flag.
func (r *EmergencyRepo) SetResolved(ctx context.Context, id uuid.UUID, resolved bool) (dispatch.EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE emergency_requests
		SET is_resolved = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+emergencyColumns,
		id, resolved)
	return scanEmergency(row)
}
