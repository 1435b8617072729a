package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/pkg/middleware/requestid"
)

// Invoker executes a named command with JSON-serialisable arguments and
// decodes the result into out. It is the only primitive the gateway needs.
type Invoker interface {
	Invoke(ctx context.Context, command string, args interface{}, out interface{}) error
}

type callObserver interface {
	ObserveRemoteCall(command string, err error, duration time.Duration)
}

// Gateway is a typed facade over an Invoker. It adds no logic beyond naming
// commands and shaping arguments; failures are returned, never retried.
type Gateway struct {
	invoker Invoker
	metrics callObserver
	logger  *zap.Logger
}

// New constructs a Gateway. metrics may be nil.
func New(invoker Invoker, metrics callObserver, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{invoker: invoker, metrics: metrics, logger: logger}
}

// Call invokes an arbitrary command. The generic HTTP bridge uses it.
func (g *Gateway) Call(ctx context.Context, command string, args interface{}, out interface{}) error {
	start := time.Now()
	err := g.invoker.Invoke(ctx, command, args, out)
	duration := time.Since(start)
	if g.metrics != nil {
		g.metrics.ObserveRemoteCall(command, err, duration)
	}
	if err != nil {
		g.logger.Debug("remote call failed",
			zap.String("command", command),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// SubstituteRequests fetches every substitute request.
func (g *Gateway) SubstituteRequests(ctx context.Context) ([]models.SubstituteRequest, error) {
	var out []models.SubstituteRequest
	if err := g.Call(ctx, CmdGetSubstituteRequests, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Classes fetches every class.
func (g *Gateway) Classes(ctx context.Context) ([]models.Class, error) {
	var out []models.Class
	if err := g.Call(ctx, CmdGetClasses, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Organizations fetches every organization.
func (g *Gateway) Organizations(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	if err := g.Call(ctx, CmdGetOrganizations, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users fetches every user.
func (g *Gateway) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := g.Call(ctx, CmdGetUsers, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubstituteResponses fetches every recorded accept or decline.
func (g *Gateway) SubstituteResponses(ctx context.Context) ([]models.SubstituteResponse, error) {
	var out []models.SubstituteResponse
	if err := g.Call(ctx, CmdGetSubstituteResponses, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubstituteRequest fetches one request.
func (g *Gateway) SubstituteRequest(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	var out models.SubstituteRequest
	if err := g.Call(ctx, CmdGetSubstituteRequestByID, IDArgs{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubstituteRequestsByStatus fetches requests with the given status.
func (g *Gateway) SubstituteRequestsByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error) {
	var out []models.SubstituteRequest
	if err := g.Call(ctx, CmdGetSubstituteRequestsByStatus, StatusArgs{Status: string(status)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubstituteRequestsForUser fetches the requests visible to a user.
func (g *Gateway) SubstituteRequestsForUser(ctx context.Context, userID string, role models.UserRole) ([]models.SubstituteRequest, error) {
	var out []models.SubstituteRequest
	if err := g.Call(ctx, CmdGetSubstituteRequestsForUser, UserScopeArgs{UserID: userID, UserRole: string(role)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrganization creates an organization.
func (g *Gateway) CreateOrganization(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	var out models.Organization
	if err := g.Call(ctx, CmdCreateOrganization, RequestArgs{Request: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganization overwrites an organization.
func (g *Gateway) UpdateOrganization(ctx context.Context, id string, req models.CreateOrganizationRequest) (*models.Organization, error) {
	var out models.Organization
	if err := g.Call(ctx, CmdUpdateOrganization, RequestArgs{ID: id, Request: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOrganization removes an organization.
func (g *Gateway) DeleteOrganization(ctx context.Context, id string) error {
	return g.Call(ctx, CmdDeleteOrganization, IDArgs{ID: id}, nil)
}

// CreateClass creates a class.
func (g *Gateway) CreateClass(ctx context.Context, req models.CreateClassRequest) (*models.Class, error) {
	var out models.Class
	if err := g.Call(ctx, CmdCreateClass, RequestArgs{Request: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassesByOrganization fetches the classes of one organization.
func (g *Gateway) ClassesByOrganization(ctx context.Context, organizationID string) ([]models.Class, error) {
	var out []models.Class
	if err := g.Call(ctx, CmdGetClassesByOrganization, OrganizationIDArgs{OrganizationID: organizationID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser creates a user.
func (g *Gateway) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var out models.User
	if err := g.Call(ctx, CmdCreateUser, RequestArgs{Request: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for an access token.
func (g *Gateway) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := g.Call(ctx, CmdLogin, LoginArgs{Username: req.Username, Password: req.Password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubstituteRequest opens a request on behalf of requestedBy.
func (g *Gateway) CreateSubstituteRequest(ctx context.Context, requestedBy string, req models.CreateSubstituteRequestRequest) (*models.SubstituteRequest, error) {
	var out models.SubstituteRequest
	if err := g.Call(ctx, CmdCreateSubstituteRequest, CreateRequestArgs{RequestedBy: requestedBy, Request: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubstituteRequestStatus sets status and assignee.
func (g *Gateway) UpdateSubstituteRequestStatus(ctx context.Context, id string, status models.RequestStatus, assignedSubstituteID *string) (*models.SubstituteRequest, error) {
	var out models.SubstituteRequest
	args := UpdateStatusArgs{ID: id, Status: string(status), AssignedSubstituteID: assignedSubstituteID}
	if err := g.Call(ctx, CmdUpdateSubstituteRequestStatus, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptSubstituteRequest fills a request with the substitute.
func (g *Gateway) AcceptSubstituteRequest(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error) {
	var out models.SubstituteRequest
	if err := g.Call(ctx, CmdAcceptSubstituteRequest, DecisionArgs{RequestID: requestID, SubstituteID: substituteID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeclineSubstituteRequest records a decline.
func (g *Gateway) DeclineSubstituteRequest(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error) {
	var out models.SubstituteRequest
	if err := g.Call(ctx, CmdDeclineSubstituteRequest, DecisionArgs{RequestID: requestID, SubstituteID: substituteID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSubstituteRequest removes a request.
func (g *Gateway) DeleteSubstituteRequest(ctx context.Context, id string) error {
	return g.Call(ctx, CmdDeleteSubstituteRequest, IDArgs{ID: id}, nil)
}

// NotificationLogs lists delivery logs, optionally for one user.
func (g *Gateway) NotificationLogs(ctx context.Context, userID string) ([]models.NotificationLog, error) {
	var out []models.NotificationLog
	if err := g.Call(ctx, CmdGetNotificationLogs, UserIDArgs{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Seed populates demo data and returns the backend's status message.
func (g *Gateway) Seed(ctx context.Context) (string, error) {
	var out string
	if err := g.Call(ctx, CmdSeedDatabase, nil, &out); err != nil {
		return "", err
	}
	return out, nil
}
