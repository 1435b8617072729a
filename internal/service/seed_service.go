package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

const (
	seedAlreadyDone = "Database already seeded"
	seedCompleted   = "Database seeded successfully with demo data"
	// DemoPassword is the password of every seeded account.
	DemoPassword = "password123"
)

type seedOrganizationWriter interface {
	Create(ctx context.Context, org *models.Organization) error
}

type seedClassWriter interface {
	Create(ctx context.Context, class *models.Class) error
}

type seedUserStore interface {
	ExistsByRole(ctx context.Context, role models.UserRole) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type seedRequestWriter interface {
	Create(ctx context.Context, req *models.SubstituteRequest) error
}

// SeedService populates an empty database with demo data.
type SeedService struct {
	orgs     seedOrganizationWriter
	classes  seedClassWriter
	users    seedUserStore
	requests seedRequestWriter
	cache    cacheInvalidator
	logger   *zap.Logger
	now      func() time.Time
	cost     int
}

// NewSeedService constructs SeedService.
func NewSeedService(orgs seedOrganizationWriter, classes seedClassWriter, users seedUserStore, requests seedRequestWriter, cache cacheInvalidator, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{
		orgs:     orgs,
		classes:  classes,
		users:    users,
		requests: requests,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

// Seed is idempotent: it does nothing once an admin account exists.
func (s *SeedService) Seed(ctx context.Context) (string, error) {
	exists, err := s.users.ExistsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing admin")
	}
	if exists {
		return seedAlreadyDone, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.cost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash demo password")
	}
	now := s.now().UTC()

	org := &models.Organization{
		Name:        "Demo School District",
		Description: strPtr("A sample school district for testing"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return "", seedError("organization", err)
	}

	newUser := func(username, email, first, last string, role models.UserRole) *models.User {
		return &models.User{
			Username:       username,
			PasswordHash:   string(hash),
			Email:          email,
			FirstName:      first,
			LastName:       last,
			Role:           role,
			OrganizationID: &org.ID,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	admin := newUser("admin", "admin@example.com", "System", "Administrator", models.RoleAdmin)
	manager := newUser("manager", "manager@example.com", "School", "Manager", models.RoleOrgManager)
	substitute := newUser("substitute", "substitute@example.com", "Jane", "Substitute", models.RoleSubstitute)
	for _, u := range []*models.User{admin, manager, substitute} {
		if err := s.users.Create(ctx, u); err != nil {
			return "", seedError("user", err)
		}
	}

	math := &models.Class{
		Name:           "5th Grade Mathematics",
		OrganizationID: org.ID,
		Subject:        strPtr("Mathematics"),
		GradeLevel:     strPtr("5th Grade"),
		RoomNumber:     strPtr("Room 101"),
		Description:    strPtr("Advanced mathematics for 5th grade students"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	science := &models.Class{
		Name:           "3rd Grade Science",
		OrganizationID: org.ID,
		Subject:        strPtr("Science"),
		GradeLevel:     strPtr("3rd Grade"),
		RoomNumber:     strPtr("Lab B"),
		Description:    strPtr("Hands-on science experiments for 3rd graders"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, c := range []*models.Class{math, science} {
		if err := s.classes.Create(ctx, c); err != nil {
			return "", seedError("class", err)
		}
	}

	requests := []*models.SubstituteRequest{
		{
			ClassID:             math.ID,
			RequestedBy:         manager.ID,
			DateNeeded:          now.AddDate(0, 0, 1).Format(models.DateLayout),
			StartTime:           "08:30",
			EndTime:             "15:00",
			Reason:              strPtr("Sick Leave"),
			SpecialInstructions: strPtr("Please follow the lesson plan on the desk. Math worksheets are in the file cabinet."),
			Status:              models.RequestStatusOpen,
		},
		{
			ClassID:              science.ID,
			RequestedBy:          manager.ID,
			DateNeeded:           now.AddDate(0, 0, 5).Format(models.DateLayout),
			StartTime:            "09:00",
			EndTime:              "14:30",
			Reason:               strPtr("Professional Development"),
			SpecialInstructions:  strPtr("Science lab safety rules posted on wall. No experiments scheduled for today."),
			Status:               models.RequestStatusFilled,
			AssignedSubstituteID: &substitute.ID,
		},
		{
			ClassID:     math.ID,
			RequestedBy: admin.ID,
			DateNeeded:  now.AddDate(0, 0, -1).Format(models.DateLayout),
			StartTime:   "08:00",
			EndTime:     "12:00",
			Reason:      strPtr("Emergency"),
			Status:      models.RequestStatusCancelled,
		},
	}
	for _, r := range requests {
		r.CreatedAt = now
		r.UpdatedAt = now
		if err := s.requests.Create(ctx, r); err != nil {
			return "", seedError("substitute request", err)
		}
	}

	invalidateAnalytics(ctx, s.cache, s.logger)
	s.logger.Info("database seeded", zap.String("organization_id", org.ID))
	return seedCompleted, nil
}

func seedError(entity string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed "+entity)
}

func strPtr(s string) *string {
	return &s
}
