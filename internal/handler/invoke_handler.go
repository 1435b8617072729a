package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/gateway"
	"github.com/noah-isme/substitute-finder-api/internal/middleware"
	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

const maxInvokeBody = 1 << 20

type commandCaller interface {
	Call(ctx context.Context, command string, args interface{}, out interface{}) error
}

// CommandPolicy maps command names to the role labels allowed to run them.
// Commands absent from the policy are open to every authenticated role.
type CommandPolicy map[string][]models.UserRole

// DefaultCommandPolicy restricts writes to admins and organization managers
// and seeding to admins.
func DefaultCommandPolicy() CommandPolicy {
	managers := []models.UserRole{models.RoleAdmin, models.RoleOrgManager}
	policy := CommandPolicy{gateway.CmdSeedDatabase: {models.RoleAdmin}}
	for _, cmd := range []string{
		gateway.CmdCreateOrganization, gateway.CmdUpdateOrganization, gateway.CmdDeleteOrganization,
		gateway.CmdCreateClass, gateway.CmdUpdateClass, gateway.CmdDeleteClass,
		gateway.CmdCreateUser, gateway.CmdGetUsers,
		gateway.CmdCreateSubstituteRequest, gateway.CmdUpdateSubstituteRequestStatus, gateway.CmdDeleteSubstituteRequest,
		gateway.CmdSendNotification, gateway.CmdLogNotification, gateway.CmdNotifySubstituteRequestCreated,
	} {
		policy[cmd] = managers
	}
	return policy
}

// InvokeHandler is the generic command bridge.
type InvokeHandler struct {
	caller commandCaller
	policy CommandPolicy
	logger *zap.Logger
}

// NewInvokeHandler constructs the bridge. A nil policy uses DefaultCommandPolicy.
func NewInvokeHandler(caller commandCaller, policy CommandPolicy, logger *zap.Logger) *InvokeHandler {
	if policy == nil {
		policy = DefaultCommandPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvokeHandler{caller: caller, policy: policy, logger: logger}
}

// Invoke godoc
// @Summary Invoke a named command
// @Description Runs one backend command with a JSON argument object and returns its JSON result
// @Tags Commands
// @Accept json
// @Produce json
// @Param command path string true "Command name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoke/{command} [post]
func (h *InvokeHandler) Invoke(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	command := c.Param("command")
	if !h.allowed(command, claims) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not run "+command))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInvokeBody))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read arguments"))
		return
	}
	var args interface{}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if !json.Valid(trimmed) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "arguments must be a JSON document"))
			return
		}
		args = json.RawMessage(trimmed)
	}

	var out json.RawMessage
	if err := h.caller.Call(c.Request.Context(), command, args, &out); err != nil {
		h.logger.Debug("command failed", zap.String("command", command), zap.String("user_id", claims.UserID), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *InvokeHandler) allowed(command string, claims *models.JWTClaims) bool {
	roles, restricted := h.policy[command]
	if !restricted {
		return true
	}
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return middleware.HasRole(claims, allowed)
}
