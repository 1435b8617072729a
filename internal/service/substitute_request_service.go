package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type substituteRequestRepository interface {
	List(ctx context.Context) ([]models.SubstituteRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.SubstituteRequest, error)
	ListVisibleToSubstitute(ctx context.Context, substituteID string) ([]models.SubstituteRequest, error)
	FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error)
	Create(ctx context.Context, req *models.SubstituteRequest) error
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, assignedSubstituteID *string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type substituteResponseRepository interface {
	List(ctx context.Context) ([]models.SubstituteResponse, error)
	Create(ctx context.Context, resp *models.SubstituteResponse) error
}

type requestUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SubstituteRequestService manages substitute requests and the responses to them.
type SubstituteRequestService struct {
	repo      substituteRequestRepository
	responses substituteResponseRepository
	users     requestUserLookup
	validator *validator.Validate
	cache     cacheInvalidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubstituteRequestService constructs SubstituteRequestService.
func NewSubstituteRequestService(repo substituteRequestRepository, responses substituteResponseRepository, users requestUserLookup, validate *validator.Validate, cache cacheInvalidator, logger *zap.Logger) *SubstituteRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstituteRequestService{
		repo:      repo,
		responses: responses,
		users:     users,
		validator: validate,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every request ordered by date and start time.
func (s *SubstituteRequestService) List(ctx context.Context) ([]models.SubstituteRequest, error) {
	requests, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitute requests")
	}
	return requests, nil
}

// ListByStatus filters requests by status.
func (s *SubstituteRequestService) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	requests, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitute requests")
	}
	return requests, nil
}

// ListForUser scopes requests by role label: admins see all, managers their
// organization, substitutes open requests plus their own assignments.
func (s *SubstituteRequestService) ListForUser(ctx context.Context, userID string, role models.UserRole) ([]models.SubstituteRequest, error) {
	var (
		requests []models.SubstituteRequest
		err      error
	)
	switch role {
	case models.RoleAdmin:
		requests, err = s.repo.List(ctx)
	case models.RoleOrgManager:
		user, lookupErr := s.users.FindByID(ctx, userID)
		if lookupErr != nil {
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
			}
			return nil, appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
		if user.OrganizationID == nil {
			return []models.SubstituteRequest{}, nil
		}
		requests, err = s.repo.ListByOrganization(ctx, *user.OrganizationID)
	case models.RoleSubstitute:
		requests, err = s.repo.ListVisibleToSubstitute(ctx, userID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown user role")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitute requests")
	}
	return requests, nil
}

// Get returns one request.
func (s *SubstituteRequestService) Get(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute request")
	}
	return req, nil
}

// Create opens a new request on behalf of requestedBy.
func (s *SubstituteRequestService) Create(ctx context.Context, requestedBy string, payload models.CreateSubstituteRequestRequest) (*models.SubstituteRequest, error) {
	if requestedBy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requester is required")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute request payload")
	}
	if payload.EndTime <= payload.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	now := s.now().UTC()
	req := &models.SubstituteRequest{
		ClassID:             payload.ClassID,
		RequestedBy:         requestedBy,
		DateNeeded:          payload.DateNeeded,
		StartTime:           payload.StartTime,
		EndTime:             payload.EndTime,
		Reason:              payload.Reason,
		SpecialInstructions: payload.SpecialInstructions,
		Status:              models.RequestStatusOpen,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create substitute request")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return req, nil
}

// UpdateStatus assigns any status with an optional assignee. No transition
// graph is enforced.
func (s *SubstituteRequestService) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, assignedSubstituteID *string) (*models.SubstituteRequest, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, assignedSubstituteID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update substitute request")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes a request.
func (s *SubstituteRequestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "substitute request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete substitute request")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return nil
}

// Accept fills the request with the substitute and records an accepted response.
func (s *SubstituteRequestService) Accept(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error) {
	if substituteID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute id is required")
	}
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	req, err := s.UpdateStatus(ctx, requestID, models.RequestStatusFilled, &substituteID)
	if err != nil {
		return nil, err
	}
	if err := s.recordResponse(ctx, requestID, substituteID, models.ResponseAccepted); err != nil {
		return nil, err
	}
	return req, nil
}

// Decline records a declined response. The request stays as it is.
func (s *SubstituteRequestService) Decline(ctx context.Context, requestID, substituteID string) (*models.SubstituteRequest, error) {
	if substituteID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute id is required")
	}
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.recordResponse(ctx, requestID, substituteID, models.ResponseDeclined); err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return req, nil
}

// Responses returns all recorded responses.
func (s *SubstituteRequestService) Responses(ctx context.Context) ([]models.SubstituteResponse, error) {
	responses, err := s.responses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitute responses")
	}
	return responses, nil
}

func (s *SubstituteRequestService) recordResponse(ctx context.Context, requestID, substituteID string, response models.ResponseType) error {
	resp := &models.SubstituteResponse{
		RequestID:    requestID,
		SubstituteID: substituteID,
		Response:     response,
		ResponseTime: s.now().UTC(),
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record substitute response")
	}
	s.logger.Info("substitute response recorded",
		zap.String("request_id", requestID),
		zap.String("substitute_id", substituteID),
		zap.String("response", string(response)))
	return nil
}
