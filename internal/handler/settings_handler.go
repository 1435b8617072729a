package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder-api/internal/settings"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

type settingsService interface {
	Load(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, patch []byte) (settings.Settings, error)
	Reset(ctx context.Context) (settings.Settings, error)
}

// SettingsHandler exposes the admin preference document.
type SettingsHandler struct {
	settings settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

// Get godoc
// @Summary Current settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	current, err := h.settings.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, current)
}

// Update godoc
// @Summary Update settings
// @Description Merges a partial document; unknown sections or keys are rejected
// @Tags Settings
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read settings"))
		return
	}
	updated, err := h.settings.Update(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}

// Reset godoc
// @Summary Restore default settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [delete]
func (h *SettingsHandler) Reset(c *gin.Context) {
	defaults, err := h.settings.Reset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defaults)
}
