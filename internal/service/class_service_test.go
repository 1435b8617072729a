package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type classRepoMock struct {
	classes []models.Class
	orgArg  string
}

func (m *classRepoMock) List(context.Context) ([]models.Class, error) {
	return m.classes, nil
}

func (m *classRepoMock) ListByOrganization(_ context.Context, organizationID string) ([]models.Class, error) {
	m.orgArg = organizationID
	var out []models.Class
	for _, c := range m.classes {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *classRepoMock) FindByID(_ context.Context, id string) (*models.Class, error) {
	for i := range m.classes {
		if m.classes[i].ID == id {
			c := m.classes[i]
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *classRepoMock) Create(_ context.Context, class *models.Class) error {
	class.ID = "class-new"
	m.classes = append(m.classes, *class)
	return nil
}

func (m *classRepoMock) Update(_ context.Context, class *models.Class) error {
	for i := range m.classes {
		if m.classes[i].ID == class.ID {
			m.classes[i] = *class
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *classRepoMock) Delete(_ context.Context, id string) error {
	for i := range m.classes {
		if m.classes[i].ID == id {
			m.classes = append(m.classes[:i], m.classes[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestClassServiceListByOrganization(t *testing.T) {
	repo := &classRepoMock{classes: []models.Class{
		{ID: "c1", OrganizationID: "o1", Name: "Algebra"},
		{ID: "c2", OrganizationID: "o2", Name: "Biology"},
	}}
	svc := NewClassService(repo, nil, nil, nil)

	classes, err := svc.ListByOrganization(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Algebra", classes[0].Name)
	assert.Equal(t, "o1", repo.orgArg)

	_, err = svc.ListByOrganization(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassServiceCreateUpdateDelete(t *testing.T) {
	repo := &classRepoMock{}
	cache := &invalidationRecorder{}
	svc := NewClassService(repo, nil, cache, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateClassRequest{Name: "Algebra"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	class, err := svc.Create(ctx, models.CreateClassRequest{Name: "Algebra", OrganizationID: "o1", RoomNumber: strp("101")})
	require.NoError(t, err)
	assert.Equal(t, "class-new", class.ID)

	updated, err := svc.Update(ctx, class.ID, models.CreateClassRequest{Name: "Algebra II", OrganizationID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "Algebra II", updated.Name)
	assert.Nil(t, updated.RoomNumber)

	_, err = svc.Update(ctx, "missing", models.CreateClassRequest{Name: "X", OrganizationID: "o1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, class.ID))
	assert.ErrorIs(t, svc.Delete(ctx, class.ID), appErrors.ErrNotFound)
	assert.Len(t, cache.patterns, 3)
}
