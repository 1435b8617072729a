package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

func TestOrganizationRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "parent_organization_id", "description", "contact_email", "contact_phone", "created_at", "updated_at"}).
		AddRow("org-1", "Demo School District", nil, "Demo", "admin@demo.edu", nil, now, now).
		AddRow("org-2", "North High", "org-1", nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + organizationColumns + " FROM organizations ORDER BY name")).WillReturnRows(rows)

	orgs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Nil(t, orgs[0].ParentOrganizationID)
	require.NotNil(t, orgs[1].ParentOrganizationID)
	assert.Equal(t, "org-1", *orgs[1].ParentOrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organizations")).
		WithArgs(sqlmock.AnyArg(), "North High", nil, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	org := &models.Organization{Name: "North High"}
	require.NoError(t, repo.Create(context.Background(), org))
	assert.NotEmpty(t, org.ID)
	assert.False(t, org.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE organizations SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Organization{ID: "missing", Name: "x"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationRepositoryDeleteAndCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOrganizationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM organizations WHERE id = $1")).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM organizations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, repo.Delete(context.Background(), "org-1"))
	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByOrganization(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "organization_id", "subject", "grade_level", "room_number", "description", "created_at", "updated_at"}).
		AddRow("class-1", "Algebra I", "org-1", "Math", "9", "101", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + classColumns + " FROM classes WHERE organization_id = $1 ORDER BY name")).
		WithArgs("org-1").
		WillReturnRows(rows)

	classes, err := repo.ListByOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Algebra I", classes[0].Name)
	require.NotNil(t, classes[0].Subject)
	assert.Equal(t, "Math", *classes[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("FROM classes WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
