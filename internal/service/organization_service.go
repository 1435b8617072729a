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

type organizationRepository interface {
	List(ctx context.Context) ([]models.Organization, error)
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	Create(ctx context.Context, org *models.Organization) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id string) error
}

// cacheInvalidator drops cached analytics after writes.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

const analyticsCachePattern = "analytics:*"

func invalidateAnalytics(ctx context.Context, cache cacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, analyticsCachePattern); err != nil {
		logger.Warn("failed to invalidate analytics cache", zap.Error(err))
	}
}

// OrganizationService manages organizations.
type OrganizationService struct {
	repo      organizationRepository
	validator *validator.Validate
	cache     cacheInvalidator
	logger    *zap.Logger
}

// NewOrganizationService constructs OrganizationService.
func NewOrganizationService(repo organizationRepository, validate *validator.Validate, cache cacheInvalidator, logger *zap.Logger) *OrganizationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{repo: repo, validator: validate, cache: cache, logger: logger}
}

// List returns all organizations.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list organizations")
	}
	return orgs, nil
}

// Get returns one organization.
func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}
	return org, nil
}

// Create adds a new organization.
func (s *OrganizationService) Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid organization payload")
	}
	org := &models.Organization{}
	applyOrganization(org, req)
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create organization")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return org, nil
}

// Update overwrites an organization. An organization cannot be its own parent.
func (s *OrganizationService) Update(ctx context.Context, id string, req models.CreateOrganizationRequest) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid organization payload")
	}
	if req.ParentOrganizationID != nil && *req.ParentOrganizationID == id {
		return nil, appErrors.Clone(appErrors.ErrValidation, "organization cannot be its own parent")
	}
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyOrganization(org, req)
	org.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, org); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update organization")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return org, nil
}

// Delete removes an organization.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete organization")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return nil
}

func applyOrganization(org *models.Organization, req models.CreateOrganizationRequest) {
	org.Name = req.Name
	org.ParentOrganizationID = req.ParentOrganizationID
	org.Description = req.Description
	org.ContactEmail = req.ContactEmail
	org.ContactPhone = req.ContactPhone
}
