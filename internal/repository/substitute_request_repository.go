package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

const substituteRequestColumns = `id, class_id, requested_by, date_needed, start_time, end_time, reason, special_instructions, status, assigned_substitute_id, created_at, updated_at`

// SubstituteRequestRepository provides database access for substitute requests.
type SubstituteRequestRepository struct {
	db *sqlx.DB
}

// NewSubstituteRequestRepository constructs the repository.
func NewSubstituteRequestRepository(db *sqlx.DB) *SubstituteRequestRepository {
	return &SubstituteRequestRepository{db: db}
}

// List returns all requests ordered by the date and start time they cover.
func (r *SubstituteRequestRepository) List(ctx context.Context) ([]models.SubstituteRequest, error) {
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests ORDER BY date_needed, start_time`
	requests := make([]models.SubstituteRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list substitute requests: %w", err)
	}
	return requests, nil
}

// ListByStatus filters requests by status.
func (r *SubstituteRequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error) {
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests WHERE status = $1 ORDER BY date_needed, start_time`
	requests := make([]models.SubstituteRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("list substitute requests by status: %w", err)
	}
	return requests, nil
}

// ListByOrganization returns requests for classes of one organization.
func (r *SubstituteRequestRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.SubstituteRequest, error) {
	const query = `SELECT sr.id, sr.class_id, sr.requested_by, sr.date_needed, sr.start_time, sr.end_time, sr.reason, sr.special_instructions,
sr.status, sr.assigned_substitute_id, sr.created_at, sr.updated_at
FROM substitute_requests sr JOIN classes c ON c.id = sr.class_id
WHERE c.organization_id = $1 ORDER BY sr.date_needed, sr.start_time`
	requests := make([]models.SubstituteRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, organizationID); err != nil {
		return nil, fmt.Errorf("list substitute requests by organization: %w", err)
	}
	return requests, nil
}

// ListVisibleToSubstitute returns open requests plus those assigned to the substitute.
func (r *SubstituteRequestRepository) ListVisibleToSubstitute(ctx context.Context, substituteID string) ([]models.SubstituteRequest, error) {
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests WHERE status = 'open' OR assigned_substitute_id = $1 ORDER BY date_needed, start_time`
	requests := make([]models.SubstituteRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, substituteID); err != nil {
		return nil, fmt.Errorf("list substitute requests for substitute: %w", err)
	}
	return requests, nil
}

// FindByID returns a request or sql.ErrNoRows.
func (r *SubstituteRequestRepository) FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests WHERE id = $1`
	var req models.SubstituteRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find substitute request: %w", err)
	}
	return &req, nil
}

// Create inserts a request. New requests default to open.
func (r *SubstituteRequestRepository) Create(ctx context.Context, req *models.SubstituteRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusOpen
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	const query = `INSERT INTO substitute_requests (id, class_id, requested_by, date_needed, start_time, end_time, reason, special_instructions, status, assigned_substitute_id, created_at, updated_at)
VALUES (:id, :class_id, :requested_by, :date_needed, :start_time, :end_time, :reason, :special_instructions, :status, :assigned_substitute_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create substitute request: %w", err)
	}
	return nil
}

// UpdateStatus sets status and assignee together.
func (r *SubstituteRequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, assignedSubstituteID *string, updatedAt time.Time) error {
	const query = `UPDATE substitute_requests SET status = $1, assigned_substitute_id = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, status, assignedSubstituteID, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update substitute request status: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a request by id.
func (r *SubstituteRequestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM substitute_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete substitute request: %w", err)
	}
	return expectAffected(res)
}
