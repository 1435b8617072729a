package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportKind enumerates exportable datasets.
type ExportKind string

const (
	ExportKindRequests      ExportKind = "requests"
	ExportKindUsers         ExportKind = "users"
	ExportKindClasses       ExportKind = "classes"
	ExportKindOrganizations ExportKind = "organizations"
	ExportKindAnalytics     ExportKind = "analytics"
	ExportKindFullReport    ExportKind = "full-report"
)

// Valid reports whether the kind is exportable.
func (k ExportKind) Valid() bool {
	switch k {
	case ExportKindRequests, ExportKindUsers, ExportKindClasses, ExportKindOrganizations,
		ExportKindAnalytics, ExportKindFullReport:
		return true
	default:
		return false
	}
}

// ExportJobStatus captures background export lifecycle states.
type ExportJobStatus string

const (
	ExportJobQueued     ExportJobStatus = "QUEUED"
	ExportJobProcessing ExportJobStatus = "PROCESSING"
	ExportJobFinished   ExportJobStatus = "FINISHED"
	ExportJobFailed     ExportJobStatus = "FAILED"
)

// ExportJob is persisted metadata of an asynchronous export.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Kind         ExportKind      `db:"kind" json:"kind"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportJobStatus `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	Filename     *string         `db:"filename" json:"filename,omitempty"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ExportJobParams stores request options persisted as JSONB.
type ExportJobParams struct {
	TimeRange TimeRange `json:"timeRange,omitempty"`
	Format    string    `json:"format"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}

// CreateExportJobRequest is the payload for queuing an export.
type CreateExportJobRequest struct {
	Kind      ExportKind `json:"kind" validate:"required,oneof=requests users classes organizations analytics full-report"`
	TimeRange TimeRange  `json:"time_range" validate:"omitempty,oneof=30d 90d 1y"`
	Format    string     `json:"format" validate:"omitempty,oneof=csv excel xlsx pdf"`
}

// ExportJobStatusResponse describes job progress for polling clients.
type ExportJobStatusResponse struct {
	ID          string          `json:"id"`
	Kind        ExportKind      `json:"kind"`
	Status      ExportJobStatus `json:"status"`
	Progress    int             `json:"progress"`
	Filename    *string         `json:"filename,omitempty"`
	DownloadURL *string         `json:"download_url,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}
