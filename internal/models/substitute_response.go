package models

import "time"

// ResponseType records how a substitute answered a request.
type ResponseType string

const (
	ResponseAccepted ResponseType = "accepted"
	ResponseDeclined ResponseType = "declined"
)

// SubstituteResponse is one accept or decline event. These rows feed the
// acceptance counters and response-time metric.
type SubstituteResponse struct {
	ID           string       `db:"id" json:"id"`
	RequestID    string       `db:"request_id" json:"request_id"`
	SubstituteID string       `db:"substitute_id" json:"substitute_id"`
	Response     ResponseType `db:"response" json:"response"`
	ResponseTime time.Time    `db:"response_time" json:"response_time"`
	Notes        *string      `db:"notes" json:"notes,omitempty"`
}
