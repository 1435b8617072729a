package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type notificationLogRepository interface {
	Create(ctx context.Context, log *models.NotificationLog) error
	ListByUser(ctx context.Context, userID string) ([]models.NotificationLog, error)
}

type notificationPublisher interface {
	Add(n models.Notification) models.Notification
}

// SendNotificationRequest is the payload for send_notification.
type SendNotificationRequest struct {
	Title     string  `json:"title" validate:"required,max=200"`
	Body      string  `json:"body" validate:"required,max=2000"`
	RequestID *string `json:"requestId,omitempty"`
	UserID    *string `json:"userId,omitempty"`
}

// LogNotificationRequest is the payload for log_notification.
type LogNotificationRequest struct {
	UserID           string                    `json:"userId" validate:"required"`
	RequestID        string                    `json:"requestId" validate:"required"`
	NotificationType models.NotificationType   `json:"notificationType" validate:"required,oneof=email push sms desktop"`
	Status           models.NotificationStatus `json:"status" validate:"required,oneof=sent failed pending"`
	ErrorMessage     *string                   `json:"errorMessage,omitempty"`
}

// NotifyRequestCreatedRequest is the payload for notify_substitute_request_created.
type NotifyRequestCreatedRequest struct {
	RequestID         string   `json:"requestId" validate:"required"`
	ClassName         string   `json:"className" validate:"required"`
	DateNeeded        string   `json:"dateNeeded" validate:"required"`
	SubstituteUserIDs []string `json:"substituteUserIds"`
}

// NotificationService publishes in-app notifications and keeps a delivery log.
type NotificationService struct {
	logs      notificationLogRepository
	publisher notificationPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(logs notificationLogRepository, publisher notificationPublisher, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logs: logs, publisher: publisher, validator: validate, logger: logger}
}

// Send publishes a notification and returns its id.
func (s *NotificationService) Send(_ context.Context, req SendNotificationRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	n := s.publisher.Add(models.Notification{
		Title:            req.Title,
		Body:             req.Body,
		RequestID:        req.RequestID,
		UserID:           req.UserID,
		NotificationType: string(models.NotificationDesktop),
	})
	return n.ID, nil
}

// Log records one delivery attempt and returns the log id.
func (s *NotificationService) Log(ctx context.Context, req LogNotificationRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification log payload")
	}
	entry := &models.NotificationLog{
		UserID:           req.UserID,
		RequestID:        req.RequestID,
		NotificationType: req.NotificationType,
		Status:           req.Status,
		ErrorMessage:     req.ErrorMessage,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log notification")
	}
	return entry.ID, nil
}

// Logs lists delivery logs, optionally for one user.
func (s *NotificationService) Logs(ctx context.Context, userID string) ([]models.NotificationLog, error) {
	logs, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notification logs")
	}
	return logs, nil
}

// NotifyRequestCreated notifies each substitute about a new request. Every
// attempt is logged as sent or failed; only successful ids are returned.
func (s *NotificationService) NotifyRequestCreated(ctx context.Context, req NotifyRequestCreatedRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}

	title := "New Substitute Request"
	body := fmt.Sprintf("Substitute needed for %s on %s", req.ClassName, req.DateNeeded)
	ids := make([]string, 0, len(req.SubstituteUserIDs))

	for _, userID := range req.SubstituteUserIDs {
		userID := userID
		requestID := req.RequestID
		logReq := LogNotificationRequest{
			UserID:           userID,
			RequestID:        requestID,
			NotificationType: models.NotificationDesktop,
			Status:           models.NotificationSent,
		}

		id, err := s.Send(ctx, SendNotificationRequest{Title: title, Body: body, RequestID: &requestID, UserID: &userID})
		if err != nil {
			s.logger.Warn("failed to send notification", zap.String("user_id", userID), zap.Error(err))
			msg := err.Error()
			logReq.Status = models.NotificationFailed
			logReq.ErrorMessage = &msg
		} else {
			ids = append(ids, id)
		}

		if _, err := s.Log(ctx, logReq); err != nil {
			s.logger.Warn("failed to log notification", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return ids, nil
}

// RequestPermission reports whether notifications may be shown. Server-side
// delivery is always permitted.
func (s *NotificationService) RequestPermission() bool {
	return true
}
