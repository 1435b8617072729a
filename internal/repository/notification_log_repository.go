package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

// NotificationLogRepository persists notification delivery attempts.
type NotificationLogRepository struct {
	db *sqlx.DB
}

// NewNotificationLogRepository constructs the repository.
func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Create inserts a log row.
func (r *NotificationLogRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.SentAt.IsZero() {
		log.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_logs (id, user_id, request_id, notification_type, sent_at, status, error_message)
VALUES (:id, :user_id, :request_id, :notification_type, :sent_at, :status, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}

// ListByUser returns logs for one user, newest first. An empty userID lists all logs.
func (r *NotificationLogRepository) ListByUser(ctx context.Context, userID string) ([]models.NotificationLog, error) {
	query := `SELECT id, user_id, request_id, notification_type, sent_at, status, error_message FROM notification_logs`
	args := make([]interface{}, 0, 1)
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY sent_at DESC`
	logs := make([]models.NotificationLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, nil
}
