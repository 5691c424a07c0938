package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sayyara-app/backend/internal/domain"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

const requestColumns = `id, user_id, from_location, to_location, scheduled_at, phone, status, created_at`

// RequestRepository implements repository.RequestRepository using PostgreSQL.
type RequestRepository struct {
	db DB
}

// NewRequestRepository creates a new PostgreSQL-backed request repository.
func NewRequestRepository(db DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new inspection request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.InspectionRequest) error {
	query := `
		INSERT INTO requests (id, user_id, from_location, to_location, scheduled_at, phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.UserID,
		req.FromLocation,
		req.ToLocation,
		req.ScheduledAt,
		req.Phone,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by its ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.InspectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequestRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}

	return req, nil
}

// ListByUserID returns all requests created by the given user, newest first.
func (r *RequestRepository) ListByUserID(ctx context.Context, userID string) ([]domain.InspectionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests by user: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// List returns a page of all requests, newest first, plus the total count.
func (r *RequestRepository) List(ctx context.Context, offset, limit int) ([]domain.InspectionRequest, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	query := `
		SELECT ` + requestColumns + `
		FROM requests
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests, err := collectRequests(rows)
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// TransitionStatus moves a request between statuses. The WHERE clause pins
// the current status, so a stale or illegal transition affects zero rows.
func (r *RequestRepository) TransitionStatus(ctx context.Context, id, from, to string) error {
	query := `UPDATE requests SET status = $1 WHERE id = $2 AND status = $3`

	ct, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("transition request status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("request %s is not in status %q", id, from))
	}

	return nil
}

// Delete removes a request by its ID.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM requests WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("request", id)
	}

	return nil
}

func collectRequests(rows pgx.Rows) ([]domain.InspectionRequest, error) {
	requests := []domain.InspectionRequest{}
	for rows.Next() {
		req, err := scanRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		requests = append(requests, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request rows: %w", err)
	}

	return requests, nil
}

func scanRequestRow(row pgx.Row) (*domain.InspectionRequest, error) {
	var req domain.InspectionRequest
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.FromLocation,
		&req.ToLocation,
		&req.ScheduledAt,
		&req.Phone,
		&req.Status,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
