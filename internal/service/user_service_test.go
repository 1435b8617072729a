package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type userRepoMock struct {
	users   []models.User
	created []*models.User
	err     error
}

func (m *userRepoMock) List(context.Context) ([]models.User, error) {
	return m.users, m.err
}

func (m *userRepoMock) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].Username == username {
			return &m.users[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *userRepoMock) Create(_ context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	user.ID = "new-user"
	m.created = append(m.created, user)
	return nil
}

func (m *userRepoMock) ListActiveByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, m.err
}

type invalidationRecorder struct {
	patterns []string
}

func (r *invalidationRecorder) Invalidate(_ context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

func TestUserServiceCreateHashesPasswordAndInvalidates(t *testing.T) {
	repo := &userRepoMock{}
	cache := &invalidationRecorder{}
	svc := NewUserService(repo, nil, cache, zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username:  "alice",
		Password:  "secret1",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      models.RoleSubstitute,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-user", user.ID)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	assert.Equal(t, []string{analyticsCachePattern}, cache.patterns)
}

func TestUserServiceCreateRejectsDuplicatesAndInvalidInput(t *testing.T) {
	repo := &userRepoMock{users: []models.User{{ID: "u-1", Username: "alice"}}}
	svc := NewUserService(repo, nil, nil, nil)
	svc.bcryptCost = bcrypt.MinCost

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "alice", Password: "secret1", Email: "alice@example.com",
		FirstName: "Alice", LastName: "Smith", Role: models.RoleSubstitute,
	})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), models.CreateUserRequest{
		Username: "bob", Password: "secret1", Email: "not-an-email",
		FirstName: "Bob", LastName: "Jones", Role: "principal",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.created)
}

func TestUserServiceListSubstitutes(t *testing.T) {
	repo := &userRepoMock{users: []models.User{
		{ID: "s1", Role: models.RoleSubstitute, IsActive: true},
		{ID: "s2", Role: models.RoleSubstitute},
		{ID: "a1", Role: models.RoleAdmin, IsActive: true},
	}}
	svc := NewUserService(repo, nil, nil, nil)

	subs, err := svc.ListSubstitutes(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "s1", subs[0].ID)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
