package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

type notificationInbox interface {
	List() []models.Notification
	UnreadCount() int
	MarkRead(id string) error
	MarkAllRead()
	Clear(id string) error
	ClearAll()
}

// NotificationHandler exposes the in-app notification inbox.
type NotificationHandler struct {
	inbox notificationInbox
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(inbox notificationInbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List godoc
// @Summary Inbox notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.inbox.List(), map[string]interface{}{"unread": h.inbox.UnreadCount()})
}

// MarkRead godoc
// @Summary Mark one notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.inbox.MarkRead(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags Notifications
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	h.inbox.MarkAllRead()
	response.NoContent(c)
}

// Clear godoc
// @Summary Remove one notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Clear(c *gin.Context) {
	if err := h.inbox.Clear(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearAll godoc
// @Summary Remove every notification
// @Tags Notifications
// @Success 204
// @Router /notifications [delete]
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	h.inbox.ClearAll()
	response.NoContent(c)
}
