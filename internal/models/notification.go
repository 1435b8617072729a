package models

import "time"

// NotificationType is the delivery channel recorded in notification logs.
type NotificationType string

const (
	NotificationEmail   NotificationType = "email"
	NotificationPush    NotificationType = "push"
	NotificationSMS     NotificationType = "sms"
	NotificationDesktop NotificationType = "desktop"
)

// NotificationStatus is the outcome of a delivery attempt.
type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationPending NotificationStatus = "pending"
)

// NotificationLog is a persisted delivery attempt.
type NotificationLog struct {
	ID               string             `db:"id" json:"id"`
	UserID           string             `db:"user_id" json:"user_id"`
	RequestID        string             `db:"request_id" json:"request_id"`
	NotificationType NotificationType   `db:"notification_type" json:"notification_type"`
	SentAt           time.Time          `db:"sent_at" json:"sent_at"`
	Status           NotificationStatus `db:"status" json:"status"`
	ErrorMessage     *string            `db:"error_message" json:"error_message,omitempty"`
}

// Notification is an in-app inbox entry.
type Notification struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	RequestID        *string   `json:"request_id,omitempty"`
	UserID           *string   `json:"user_id,omitempty"`
	NotificationType string    `json:"notification_type"`
	Timestamp        time.Time `json:"timestamp"`
	Read             bool      `json:"read"`
}
