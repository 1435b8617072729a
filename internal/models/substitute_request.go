package models

import "time"

// DateLayout is the wire format of SubstituteRequest.DateNeeded.
const DateLayout = "2006-01-02"

// RequestStatus is a three-state flag; any status may be assigned at any time.
type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "open"
	RequestStatusFilled    RequestStatus = "filled"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusFilled, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// SubstituteRequest asks for cover of one class on one date.
type SubstituteRequest struct {
	ID                   string        `db:"id" json:"id"`
	ClassID              string        `db:"class_id" json:"class_id"`
	RequestedBy          string        `db:"requested_by" json:"requested_by"`
	DateNeeded           string        `db:"date_needed" json:"date_needed"`
	StartTime            string        `db:"start_time" json:"start_time"`
	EndTime              string        `db:"end_time" json:"end_time"`
	Reason               *string       `db:"reason" json:"reason,omitempty"`
	SpecialInstructions  *string       `db:"special_instructions" json:"special_instructions,omitempty"`
	Status               RequestStatus `db:"status" json:"status"`
	AssignedSubstituteID *string       `db:"assigned_substitute_id" json:"assigned_substitute_id,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// DateNeededIn parses DateNeeded as a calendar date in loc.
func (r SubstituteRequest) DateNeededIn(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if len(r.DateNeeded) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, r.DateNeeded[:len(DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CreateSubstituteRequestRequest is the payload for create_substitute_request.
type CreateSubstituteRequestRequest struct {
	ClassID             string  `json:"class_id" validate:"required,max=64"`
	DateNeeded          string  `json:"date_needed" validate:"required,datetime=2006-01-02"`
	StartTime           string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string  `json:"end_time" validate:"required,datetime=15:04"`
	Reason              *string `json:"reason,omitempty" validate:"omitempty,max=2000"`
	SpecialInstructions *string `json:"special_instructions,omitempty" validate:"omitempty,max=2000"`
}
