package gateway

// Command names understood by the backend.
const (
	CmdCreateOrganization  = "create_organization"
	CmdGetOrganizations    = "get_organizations"
	CmdGetOrganizationByID = "get_organization_by_id"
	CmdUpdateOrganization  = "update_organization"
	CmdDeleteOrganization  = "delete_organization"

	CmdCreateClass              = "create_class"
	CmdGetClasses               = "get_classes"
	CmdGetClassesByOrganization = "get_classes_by_organization"
	CmdGetClassByID             = "get_class_by_id"
	CmdUpdateClass              = "update_class"
	CmdDeleteClass              = "delete_class"

	CmdCreateUser = "create_user"
	CmdGetUsers   = "get_users"
	CmdLogin      = "login"

	CmdCreateSubstituteRequest        = "create_substitute_request"
	CmdGetSubstituteRequests          = "get_substitute_requests"
	CmdGetSubstituteRequestsByStatus  = "get_substitute_requests_by_status"
	CmdGetSubstituteRequestByID       = "get_substitute_request_by_id"
	CmdUpdateSubstituteRequestStatus  = "update_substitute_request_status"
	CmdDeleteSubstituteRequest        = "delete_substitute_request"
	CmdAcceptSubstituteRequest        = "accept_substitute_request"
	CmdDeclineSubstituteRequest       = "decline_substitute_request"
	CmdGetSubstituteRequestsForUser   = "get_substitute_requests_for_user"
	CmdGetSubstituteResponses         = "get_substitute_responses"
	CmdSendNotification               = "send_notification"
	CmdLogNotification                = "log_notification"
	CmdGetNotificationLogs            = "get_notification_logs"
	CmdNotifySubstituteRequestCreated = "notify_substitute_request_created"
	CmdRequestNotificationPermission  = "request_notification_permission"

	CmdSeedDatabase = "seed_database"
)

// IDArgs addresses one entity.
type IDArgs struct {
	ID string `json:"id"`
}

// RequestArgs carries a create or update payload, with ID set for updates.
type RequestArgs struct {
	ID      string      `json:"id,omitempty"`
	Request interface{} `json:"request"`
}

// OrganizationIDArgs scopes a listing to one organization.
type OrganizationIDArgs struct {
	OrganizationID string `json:"organizationId"`
}

// CreateRequestArgs carries a new substitute request and its requester.
type CreateRequestArgs struct {
	RequestedBy string      `json:"requestedBy"`
	Request     interface{} `json:"request"`
}

// StatusArgs filters requests by status.
type StatusArgs struct {
	Status string `json:"status"`
}

// UpdateStatusArgs sets a request status and optional assignee.
type UpdateStatusArgs struct {
	ID                   string  `json:"id"`
	Status               string  `json:"status"`
	AssignedSubstituteID *string `json:"assignedSubstituteId,omitempty"`
}

// DecisionArgs is a substitute's answer to a request.
type DecisionArgs struct {
	RequestID    string `json:"requestId"`
	SubstituteID string `json:"substituteId"`
}

// UserScopeArgs identifies the caller for role-scoped listings.
type UserScopeArgs struct {
	UserID   string `json:"userId"`
	UserRole string `json:"userRole"`
}

// LoginArgs carries credentials.
type LoginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserIDArgs optionally scopes a listing to one user.
type UserIDArgs struct {
	UserID string `json:"userId,omitempty"`
}
