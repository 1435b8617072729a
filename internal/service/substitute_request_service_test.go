package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type requestRepoMock struct {
	requests map[string]*models.SubstituteRequest
	orgArg   string
	subArg   string
	err      error
}

func newRequestRepoMock(items ...models.SubstituteRequest) *requestRepoMock {
	m := &requestRepoMock{requests: map[string]*models.SubstituteRequest{}}
	for i := range items {
		item := items[i]
		m.requests[item.ID] = &item
	}
	return m
}

func (m *requestRepoMock) all() []models.SubstituteRequest {
	out := make([]models.SubstituteRequest, 0, len(m.requests))
	for _, r := range m.requests {
		out = append(out, *r)
	}
	return out
}

func (m *requestRepoMock) List(context.Context) ([]models.SubstituteRequest, error) {
	return m.all(), m.err
}

func (m *requestRepoMock) ListByStatus(_ context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error) {
	var out []models.SubstituteRequest
	for _, r := range m.all() {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, m.err
}

func (m *requestRepoMock) ListByOrganization(_ context.Context, organizationID string) ([]models.SubstituteRequest, error) {
	m.orgArg = organizationID
	return m.all(), m.err
}

func (m *requestRepoMock) ListVisibleToSubstitute(_ context.Context, substituteID string) ([]models.SubstituteRequest, error) {
	m.subArg = substituteID
	return m.all(), m.err
}

func (m *requestRepoMock) FindByID(_ context.Context, id string) (*models.SubstituteRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (m *requestRepoMock) Create(_ context.Context, req *models.SubstituteRequest) error {
	if m.err != nil {
		return m.err
	}
	req.ID = "req-new"
	m.requests[req.ID] = req
	return nil
}

func (m *requestRepoMock) UpdateStatus(_ context.Context, id string, status models.RequestStatus, assigned *string, updatedAt time.Time) error {
	r, ok := m.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	r.AssignedSubstituteID = assigned
	r.UpdatedAt = updatedAt
	return nil
}

func (m *requestRepoMock) Delete(_ context.Context, id string) error {
	if _, ok := m.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.requests, id)
	return nil
}

type responseRepoMock struct {
	created []models.SubstituteResponse
	err     error
}

func (m *responseRepoMock) List(context.Context) ([]models.SubstituteResponse, error) {
	return m.created, nil
}

func (m *responseRepoMock) Create(_ context.Context, resp *models.SubstituteResponse) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *resp)
	return nil
}

type userLookupMock map[string]*models.User

func (m userLookupMock) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

var requestClock = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newRequestServiceForTest(repo *requestRepoMock, responses *responseRepoMock, users userLookupMock, cache cacheInvalidator) *SubstituteRequestService {
	svc := NewSubstituteRequestService(repo, responses, users, nil, cache, nil)
	svc.now = func() time.Time { return requestClock }
	return svc
}

func TestSubstituteRequestServiceCreate(t *testing.T) {
	repo := newRequestRepoMock()
	cache := &invalidationRecorder{}
	svc := newRequestServiceForTest(repo, &responseRepoMock{}, nil, cache)
	ctx := context.Background()

	payload := models.CreateSubstituteRequestRequest{ClassID: "c1", DateNeeded: "2024-03-20", StartTime: "08:00", EndTime: "09:30", Reason: strp("conference")}
	req, err := svc.Create(ctx, "u-1", payload)
	require.NoError(t, err)
	assert.Equal(t, "req-new", req.ID)
	assert.Equal(t, models.RequestStatusOpen, req.Status)
	assert.Equal(t, "u-1", req.RequestedBy)
	assert.Equal(t, requestClock, req.CreatedAt)
	assert.Equal(t, []string{analyticsCachePattern}, cache.patterns)

	_, err = svc.Create(ctx, "", payload)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	payload.EndTime = "07:00"
	_, err = svc.Create(ctx, "u-1", payload)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	payload.EndTime = "09:30"
	payload.DateNeeded = "20-03-2024"
	_, err = svc.Create(ctx, "u-1", payload)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSubstituteRequestServiceUpdateStatusAllowsAnyTransition(t *testing.T) {
	repo := newRequestRepoMock(models.SubstituteRequest{ID: "r1", Status: models.RequestStatusCancelled})
	svc := newRequestServiceForTest(repo, &responseRepoMock{}, nil, nil)
	ctx := context.Background()

	req, err := svc.UpdateStatus(ctx, "r1", models.RequestStatusOpen, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, req.Status)
	assert.Equal(t, requestClock, req.UpdatedAt)

	_, err = svc.UpdateStatus(ctx, "r1", "archived", nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(ctx, "missing", models.RequestStatusFilled, nil)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSubstituteRequestServiceAcceptAndDecline(t *testing.T) {
	repo := newRequestRepoMock(models.SubstituteRequest{ID: "r1", Status: models.RequestStatusOpen})
	responses := &responseRepoMock{}
	svc := newRequestServiceForTest(repo, responses, nil, nil)
	ctx := context.Background()

	declined, err := svc.Decline(ctx, "r1", "s2")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, declined.Status)

	accepted, err := svc.Accept(ctx, "r1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFilled, accepted.Status)
	require.NotNil(t, accepted.AssignedSubstituteID)
	assert.Equal(t, "s1", *accepted.AssignedSubstituteID)

	require.Len(t, responses.created, 2)
	assert.Equal(t, models.ResponseDeclined, responses.created[0].Response)
	assert.Equal(t, models.ResponseAccepted, responses.created[1].Response)
	assert.Equal(t, requestClock, responses.created[1].ResponseTime)

	_, err = svc.Accept(ctx, "missing", "s1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Decline(ctx, "r1", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	responses.err = errors.New("insert failed")
	_, err = svc.Decline(ctx, "r1", "s3")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestSubstituteRequestServiceListForUser(t *testing.T) {
	org := "org-1"
	repo := newRequestRepoMock(models.SubstituteRequest{ID: "r1"})
	users := userLookupMock{
		"m1": {ID: "m1", Role: models.RoleOrgManager, OrganizationID: &org},
		"m2": {ID: "m2", Role: models.RoleOrgManager},
	}
	svc := newRequestServiceForTest(repo, &responseRepoMock{}, users, nil)
	ctx := context.Background()

	all, err := svc.ListForUser(ctx, "a1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.ListForUser(ctx, "m1", models.RoleOrgManager)
	require.NoError(t, err)
	assert.Equal(t, "org-1", repo.orgArg)

	none, err := svc.ListForUser(ctx, "m2", models.RoleOrgManager)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.ListForUser(ctx, "ghost", models.RoleOrgManager)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.ListForUser(ctx, "s1", models.RoleSubstitute)
	require.NoError(t, err)
	assert.Equal(t, "s1", repo.subArg)

	_, err = svc.ListForUser(ctx, "x", "principal")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
