package command

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/substitute-finder-api/internal/gateway"
	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/internal/service"
)

type organizationService interface {
	List(ctx context.Context) ([]models.Organization, error)
	Get(ctx context.Context, id string) (*models.Organization, error)
	Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error)
	Update(ctx context.Context, id string, req models.CreateOrganizationRequest) (*models.Organization, error)
	Delete(ctx context.Context, id string) error
}

type classService interface {
	List(ctx context.Context) ([]models.Class, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Class, error)
	Get(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, req models.CreateClassRequest) (*models.Class, error)
	Update(ctx context.Context, id string, req models.CreateClassRequest) (*models.Class, error)
	Delete(ctx context.Context, id string) error
}

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

type requestService interface {
	List(ctx context.Context) ([]models.SubstituteRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error)
	ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.SubstituteRequest, error)
	Get(ctx context.Context, id string) (*models.SubstituteRequest, error)
	Create(ctx context.Context, requestedBy string, payload models.CreateSubstituteRequestRequest) (*models.SubstituteRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, assignedSubstituteID *string) (*models.SubstituteRequest, error)
	Delete(ctx context.Context, id string) error
	Accept(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error)
	Decline(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error)
	Responses(ctx context.Context) ([]models.SubstituteResponse, error)
}

type notificationService interface {
	Send(ctx context.Context, req service.SendNotificationRequest) (string, error)
	Log(ctx context.Context, req service.LogNotificationRequest) (string, error)
	Logs(ctx context.Context, userID string) ([]models.NotificationLog, error)
	NotifyRequestCreated(ctx context.Context, req service.NotifyRequestCreatedRequest) ([]string, error)
	RequestPermission() bool
}

type seedService interface {
	Seed(ctx context.Context) (string, error)
}

// Services groups the backends the command set dispatches to.
type Services struct {
	Organizations organizationService
	Classes       classService
	Users         userService
	Auth          authService
	Requests      requestService
	Notifications notificationService
	Seed          seedService
}

type organizationPayload struct {
	ID      string                           `json:"id"`
	Request models.CreateOrganizationRequest `json:"request"`
}

type classPayload struct {
	ID      string                    `json:"id"`
	Request models.CreateClassRequest `json:"request"`
}

type userPayload struct {
	Request models.CreateUserRequest `json:"request"`
}

type substituteRequestPayload struct {
	RequestedBy string                                `json:"requestedBy"`
	Request     models.CreateSubstituteRequestRequest `json:"request"`
}

// Bind registers the full command set on r.
func Bind(r *Registry, svc Services) {
	bindOrganizations(r, svc.Organizations)
	bindClasses(r, svc.Classes)
	bindUsers(r, svc.Users, svc.Auth)
	bindRequests(r, svc.Requests)
	bindNotifications(r, svc.Notifications)

	r.Register(gateway.CmdSeedDatabase, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return svc.Seed.Seed(ctx)
	})
}

func bindOrganizations(r *Registry, orgs organizationService) {
	r.Register(gateway.CmdGetOrganizations, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return orgs.List(ctx)
	})
	r.Register(gateway.CmdGetOrganizationByID, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return orgs.Get(ctx, args.ID)
	})
	r.Register(gateway.CmdCreateOrganization, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args organizationPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return orgs.Create(ctx, args.Request)
	})
	r.Register(gateway.CmdUpdateOrganization, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args organizationPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return orgs.Update(ctx, args.ID, args.Request)
	})
	r.Register(gateway.CmdDeleteOrganization, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return nil, orgs.Delete(ctx, args.ID)
	})
}

func bindClasses(r *Registry, classes classService) {
	r.Register(gateway.CmdGetClasses, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return classes.List(ctx)
	})
	r.Register(gateway.CmdGetClassesByOrganization, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.OrganizationIDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return classes.ListByOrganization(ctx, args.OrganizationID)
	})
	r.Register(gateway.CmdGetClassByID, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return classes.Get(ctx, args.ID)
	})
	r.Register(gateway.CmdCreateClass, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args classPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return classes.Create(ctx, args.Request)
	})
	r.Register(gateway.CmdUpdateClass, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args classPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return classes.Update(ctx, args.ID, args.Request)
	})
	r.Register(gateway.CmdDeleteClass, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return nil, classes.Delete(ctx, args.ID)
	})
}

func bindUsers(r *Registry, users userService, auth authService) {
	r.Register(gateway.CmdGetUsers, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return users.List(ctx)
	})
	r.Register(gateway.CmdCreateUser, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args userPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return users.Create(ctx, args.Request)
	})
	r.Register(gateway.CmdLogin, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.LoginArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return auth.Login(ctx, models.LoginRequest{Username: args.Username, Password: args.Password})
	})
}

func bindRequests(r *Registry, requests requestService) {
	r.Register(gateway.CmdGetSubstituteRequests, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return requests.List(ctx)
	})
	r.Register(gateway.CmdGetSubstituteResponses, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return requests.Responses(ctx)
	})
	r.Register(gateway.CmdGetSubstituteRequestsByStatus, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.StatusArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return requests.ListByStatus(ctx, models.RequestStatus(args.Status))
	})
	r.Register(gateway.CmdGetSubstituteRequestsForUser, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.UserScopeArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("userId", args.UserID); err != nil {
			return nil, err
		}
		return requests.ListForUser(ctx, args.UserID, models.UserRole(args.UserRole))
	})
	r.Register(gateway.CmdGetSubstituteRequestByID, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return requests.Get(ctx, args.ID)
	})
	r.Register(gateway.CmdCreateSubstituteRequest, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args substituteRequestPayload
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return requests.Create(ctx, args.RequestedBy, args.Request)
	})
	r.Register(gateway.CmdUpdateSubstituteRequestStatus, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.UpdateStatusArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return requests.UpdateStatus(ctx, args.ID, models.RequestStatus(args.Status), args.AssignedSubstituteID)
	})
	r.Register(gateway.CmdDeleteSubstituteRequest, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.IDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("id", args.ID); err != nil {
			return nil, err
		}
		return nil, requests.Delete(ctx, args.ID)
	})
	r.Register(gateway.CmdAcceptSubstituteRequest, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.DecisionArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("requestId", args.RequestID); err != nil {
			return nil, err
		}
		return requests.Accept(ctx, args.RequestID, args.SubstituteID)
	})
	r.Register(gateway.CmdDeclineSubstituteRequest, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.DecisionArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if err := requireID("requestId", args.RequestID); err != nil {
			return nil, err
		}
		return requests.Decline(ctx, args.RequestID, args.SubstituteID)
	})
}

func bindNotifications(r *Registry, notifications notificationService) {
	r.Register(gateway.CmdSendNotification, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args service.SendNotificationRequest
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return notifications.Send(ctx, args)
	})
	r.Register(gateway.CmdLogNotification, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args service.LogNotificationRequest
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return notifications.Log(ctx, args)
	})
	r.Register(gateway.CmdGetNotificationLogs, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args gateway.UserIDArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return notifications.Logs(ctx, args.UserID)
	})
	r.Register(gateway.CmdNotifySubstituteRequestCreated, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args service.NotifyRequestCreatedRequest
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return notifications.NotifyRequestCreated(ctx, args)
	})
	r.Register(gateway.CmdRequestNotificationPermission, func(context.Context, json.RawMessage) (interface{}, error) {
		return notifications.RequestPermission(), nil
	})
}
