package models

import "time"

// Organization is a school or district. ParentOrganizationID forms a tree.
type Organization struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	ParentOrganizationID *string   `db:"parent_organization_id" json:"parent_organization_id,omitempty"`
	Description          *string   `db:"description" json:"description,omitempty"`
	ContactEmail         *string   `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone         *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// CreateOrganizationRequest is the payload for create_organization and update_organization.
type CreateOrganizationRequest struct {
	Name                 string  `json:"name" validate:"required,max=200"`
	ParentOrganizationID *string `json:"parent_organization_id,omitempty" validate:"omitempty,max=64"`
	Description          *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ContactEmail         *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone         *string `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
}
