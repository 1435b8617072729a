package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

// SubstituteResponseRepository stores accept and decline events.
type SubstituteResponseRepository struct {
	db *sqlx.DB
}

// NewSubstituteResponseRepository constructs the repository.
func NewSubstituteResponseRepository(db *sqlx.DB) *SubstituteResponseRepository {
	return &SubstituteResponseRepository{db: db}
}

// List returns every response ordered by when it was recorded.
func (r *SubstituteResponseRepository) List(ctx context.Context) ([]models.SubstituteResponse, error) {
	const query = `SELECT id, request_id, substitute_id, response, response_time, notes FROM substitute_responses ORDER BY response_time`
	responses := make([]models.SubstituteResponse, 0)
	if err := r.db.SelectContext(ctx, &responses, query); err != nil {
		return nil, fmt.Errorf("list substitute responses: %w", err)
	}
	return responses, nil
}

// Create records a response.
func (r *SubstituteResponseRepository) Create(ctx context.Context, resp *models.SubstituteResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.ResponseTime.IsZero() {
		resp.ResponseTime = time.Now().UTC()
	}
	const query = `INSERT INTO substitute_responses (id, request_id, substitute_id, response, response_time, notes)
VALUES (:id, :request_id, :substitute_id, :response, :response_time, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, resp); err != nil {
		return fmt.Errorf("create substitute response: %w", err)
	}
	return nil
}
