package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/settings"
)

func TestSettingsHandlerLifecycle(t *testing.T) {
	svc := settings.NewService(settings.NewMemoryStore(), "test", settings.Defaults(""), nil, nil)
	h := NewSettingsHandler(svc)

	c, w := newGinContext(http.MethodPut, "/settings", []byte(`{"ui":{"theme":"dark"}}`))
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/settings", nil)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var current settings.Settings
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &current))
	assert.Equal(t, "dark", current.UI.Theme)
	assert.Equal(t, "dashboard", current.UI.DefaultPage)

	c, w = newGinContext(http.MethodPut, "/settings", []byte(`{"ui":{"wallpaper":"cats"}}`))
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)

	c, w = newGinContext(http.MethodDelete, "/settings", nil)
	h.Reset(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &current))
	assert.Equal(t, "system", current.UI.Theme)
}
