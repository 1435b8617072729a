package models

import "time"

// Class belongs to exactly one organization.
type Class struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Subject        *string   `db:"subject" json:"subject,omitempty"`
	GradeLevel     *string   `db:"grade_level" json:"grade_level,omitempty"`
	RoomNumber     *string   `db:"room_number" json:"room_number,omitempty"`
	Description    *string   `db:"description" json:"description,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CreateClassRequest is the payload for create_class and update_class.
type CreateClassRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	OrganizationID string  `json:"organization_id" validate:"required,max=64"`
	Subject        *string `json:"subject,omitempty" validate:"omitempty,max=200"`
	GradeLevel     *string `json:"grade_level,omitempty" validate:"omitempty,max=50"`
	RoomNumber     *string `json:"room_number,omitempty" validate:"omitempty,max=50"`
	Description    *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}
