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

const organizationColumns = `id, name, parent_organization_id, description, contact_email, contact_phone, created_at, updated_at`

// OrganizationRepository provides database access for organizations.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// List returns every organization ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY name`
	orgs := make([]models.Organization, 0)
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// FindByID returns an organization or sql.ErrNoRows.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &org, nil
}

// Create inserts a new organization, generating id and timestamps when absent.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = org.CreatedAt
	}
	const query = `INSERT INTO organizations (id, name, parent_organization_id, description, contact_email, contact_phone, created_at, updated_at)
VALUES (:id, :name, :parent_organization_id, :description, :contact_email, :contact_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an organization.
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE organizations SET name = :name, parent_organization_id = :parent_organization_id, description = :description,
contact_email = :contact_email, contact_phone = :contact_phone, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, org)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an organization by id.
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	return expectAffected(res)
}

// Count returns the number of organizations.
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return total, nil
}

// expectAffected converts a zero-row mutation into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
