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

const classColumns = `id, name, organization_id, subject, grade_level, room_number, description, created_at, updated_at`

// ClassRepository provides database access for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns every class ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes ORDER BY name`
	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListByOrganization returns the classes of one organization.
func (r *ClassRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE organization_id = $1 ORDER BY name`
	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query, organizationID); err != nil {
		return nil, fmt.Errorf("list classes by organization: %w", err)
	}
	return classes, nil
}

// FindByID returns a class or sql.ErrNoRows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	if class.UpdatedAt.IsZero() {
		class.UpdatedAt = class.CreatedAt
	}
	const query = `INSERT INTO classes (id, name, organization_id, subject, grade_level, room_number, description, created_at, updated_at)
VALUES (:id, :name, :organization_id, :subject, :grade_level, :room_number, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	if class.UpdatedAt.IsZero() {
		class.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE classes SET name = :name, organization_id = :organization_id, subject = :subject, grade_level = :grade_level,
room_number = :room_number, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a class by id.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return expectAffected(res)
}
