package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/export"
)

type recordingSink struct {
	delivered []Artifact
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, artifact Artifact) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, artifact)
	return nil
}

func newTestExportService(set models.EntitySet) *ExportService {
	return NewExportService(&fakeEntitySource{set: set}, fixedEngine(), nil, NewMetricsService(), nil)
}

func strp(s string) *string { return &s }

func TestRequestsDatasetResolvesNamesWithFallbacks(t *testing.T) {
	set := engineFixture()
	set.Requests = []models.SubstituteRequest{
		{ID: "r1", ClassID: "c1", RequestedBy: "a1", AssignedSubstituteID: strp("s1"), Status: models.RequestStatusFilled, Reason: strp("Sick, with \"flu\""), CreatedAt: engineNow, UpdatedAt: engineNow},
		{ID: "r2", ClassID: "c3", RequestedBy: "nobody", AssignedSubstituteID: strp("ghost"), Status: models.RequestStatusOpen},
		{ID: "r3", ClassID: "missing", RequestedBy: "a1", Status: models.RequestStatusOpen},
	}

	data := RequestsDataset(set.Requests, set.Classes, set.Organizations, set.Users, time.UTC)

	require.Len(t, data.Headers, 13)
	assert.Equal(t, "Request ID", data.Headers[0])
	assert.Equal(t, "Updated At", data.Headers[12])
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"r1", "Algebra", "North High", "", "", "", "filled", "Ada Admin", "Alice Smith", "Sick, with \"flu\"", "", "2024-03-15 12:00:00", "2024-03-15 12:00:00"}, data.Rows[0])
	assert.Equal(t, "Orphan", data.Rows[1][1])
	assert.Equal(t, UnknownOrganization, data.Rows[1][2])
	assert.Equal(t, UnknownUser, data.Rows[1][7])
	assert.Equal(t, UnknownUser, data.Rows[1][8])
	assert.Equal(t, UnknownClass, data.Rows[2][1])
	assert.Equal(t, UnknownOrganization, data.Rows[2][2])
	assert.Equal(t, "", data.Rows[2][8], "unassigned requests leave the column empty")

	csv, err := export.NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Contains(t, string(csv), `"Sick, with ""flu"""`)
	assert.False(t, strings.HasSuffix(string(csv), "\n"))
}

func TestEntityDatasetsResolveOrganizations(t *testing.T) {
	orgs := []models.Organization{
		{ID: "o1", Name: "District"},
		{ID: "o2", Name: "North High", ParentOrganizationID: strp("o1")},
		{ID: "o3", Name: "Detached", ParentOrganizationID: strp("gone")},
	}

	orgData := OrganizationsDataset(orgs, time.UTC)
	assert.Equal(t, "", orgData.Rows[0][2])
	assert.Equal(t, "District", orgData.Rows[1][2])
	assert.Equal(t, UnknownOrganization, orgData.Rows[2][2])

	classData := ClassesDataset([]models.Class{{ID: "c1", Name: "Art", OrganizationID: "nowhere", Subject: strp("Art")}}, orgs, time.UTC)
	assert.Equal(t, []string{"Class ID", "Name", "Organization", "Subject", "Grade Level", "Room Number", "Description", "Created At", "Updated At"}, classData.Headers)
	assert.Equal(t, []string{"c1", "Art", UnknownOrganization, "Art", "", "", "", "", ""}, classData.Rows[0])

	userData := UsersDataset([]models.User{
		{ID: "u1", Username: "jane", Role: models.RoleSubstitute, IsActive: true},
		{ID: "u2", Username: "mgr", Role: models.RoleOrgManager, OrganizationID: strp("o2")},
	}, orgs, time.UTC)
	assert.Equal(t, "", userData.Rows[0][6])
	assert.Equal(t, "Yes", userData.Rows[0][7])
	assert.Equal(t, "North High", userData.Rows[1][6])
	assert.Equal(t, "No", userData.Rows[1][7])
}

func TestExportServiceAnalyticsReport(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestExportService(engineFixture())

	artifacts, err := svc.Export(context.Background(), models.ExportKindAnalytics, models.TimeRange30Days, export.FormatCSV, sink)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, artifacts, sink.delivered)
	assert.Equal(t, "analytics-report-30d-2024-03-15.csv", artifacts[0].Filename)
	assert.Equal(t, "text/csv; charset=utf-8", artifacts[0].ContentType)

	content := string(artifacts[0].Content)
	assert.True(t, strings.HasPrefix(content, "=== ANALYTICS SUMMARY ===\nMetric,Value\nTime Range,30d\nTotal Requests,4\nFill Rate (%),50\nAverage Response Time (hours),15.5\nMost Active Organization,North High"))
	for _, banner := range []string{"\n\n=== MONTHLY TRENDS ===\nMonth,Total Requests,Filled Requests,Fill Rate (%)\nOct,0,0,0", "\n\n=== DAY OF WEEK ANALYSIS ===\nDay of Week,Request Count\nSunday,2", "\n\n=== SUBSTITUTE PERFORMANCE ===\nSubstitute Name,Accepted,Declined,Acceptance Rate (%)\nAlice Smith,2,0,100", "\n\n=== ORGANIZATION PERFORMANCE ===\nOrganization,Total Requests,Fill Rate (%)\nNorth High,2,50"} {
		assert.Contains(t, content, banner)
	}
}

func TestExportServiceExcelVariantCarriesBOM(t *testing.T) {
	svc := newTestExportService(engineFixture())

	artifacts, err := svc.Build(context.Background(), models.ExportKindOrganizations, "", export.FormatExcel)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "organizations-2024-03-15.csv", artifacts[0].Filename)
	assert.True(t, strings.HasPrefix(string(artifacts[0].Content), "\ufeffOrganization ID,Name"))
}

func TestExportServiceFullReport(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestExportService(engineFixture())

	artifacts, err := svc.Export(context.Background(), models.ExportKindFullReport, models.TimeRange30Days, export.FormatCSV, sink)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "summary-report-2024-03-15.csv", artifacts[0].Filename)
	assert.Equal(t, "substitute-requests-2024-03-15.csv", artifacts[1].Filename)

	summary := string(artifacts[0].Content)
	for _, line := range []string{"Total Requests: 4", "Filled Requests: 2", "Open Requests: 1", "Cancelled Requests: 1", "Fill Rate: 50%", "Total Organizations: 3", "Substitute Teachers: 2", "Time Range: 30d"} {
		assert.Contains(t, summary, line)
	}

	detailLines := strings.Split(string(artifacts[1].Content), "\n")
	assert.Len(t, detailLines, 5, "header plus the four requests inside the window")
	assert.NotContains(t, string(artifacts[1].Content), "r5,")
}

func TestSummaryLinesStatusCountsSumToTotal(t *testing.T) {
	requests := []models.SubstituteRequest{
		{Status: models.RequestStatusOpen}, {Status: models.RequestStatusFilled},
		{Status: models.RequestStatusFilled}, {Status: models.RequestStatusCancelled},
	}
	lines := SummaryLines(models.EntitySet{}, requests, models.TimeRange90Days, engineNow, export.FormatCSV)

	assert.Contains(t, lines, "Total Requests: 4")
	assert.Contains(t, lines, "Open Requests: 1")
	assert.Contains(t, lines, "Filled Requests: 2")
	assert.Contains(t, lines, "Cancelled Requests: 1")
	assert.Contains(t, lines, "- substitute-requests-2024-03-15.csv")
}

func TestExportServiceDeliveryFailureIsTyped(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	metrics := NewMetricsService()
	svc := NewExportService(&fakeEntitySource{set: engineFixture()}, fixedEngine(), nil, metrics, nil)

	_, err := svc.Export(context.Background(), models.ExportKindRequests, models.TimeRange30Days, export.FormatCSV, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrExportDelivery)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, uint64(1), metrics.Snapshot().ExportsTotal)

	_, err = svc.Export(context.Background(), models.ExportKindRequests, models.TimeRange30Days, export.FormatCSV, nil)
	assert.ErrorIs(t, err, appErrors.ErrExportDelivery)
}

func TestExportServiceRejectsUnknownKind(t *testing.T) {
	svc := newTestExportService(engineFixture())

	_, err := svc.Build(context.Background(), models.ExportKind("grades"), models.TimeRange30Days, export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServiceFetchFailurePropagates(t *testing.T) {
	svc := NewExportService(&fakeEntitySource{err: assert.AnError}, fixedEngine(), nil, nil, nil)

	_, err := svc.Export(context.Background(), models.ExportKindUsers, models.TimeRange30Days, export.FormatCSV, &recordingSink{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestArtifactFilenames(t *testing.T) {
	assert.Equal(t, "users-2024-03-15.xlsx", ArtifactFilename(models.ExportKindUsers, "", export.FormatXLSX, engineNow))
	assert.Equal(t, "classes-2024-03-15.pdf", ArtifactFilename(models.ExportKindClasses, "", export.FormatPDF, engineNow))
	assert.Equal(t, "analytics-report-1y-2024-03-15.csv", ArtifactFilename(models.ExportKindAnalytics, models.TimeRange1Year, export.FormatExcel, engineNow))

	jakarta := time.FixedZone("WIB", 7*60*60)
	lateEvening := time.Date(2024, time.March, 15, 23, 30, 0, 0, time.FixedZone("EST", -5*60*60))
	assert.Equal(t, "users-2024-03-16.csv", ArtifactFilename(models.ExportKindUsers, "", export.FormatCSV, lateEvening))
	earlyMorning := time.Date(2024, time.March, 16, 3, 0, 0, 0, jakarta)
	assert.Equal(t, "users-2024-03-15.csv", ArtifactFilename(models.ExportKindUsers, "", export.FormatCSV, earlyMorning))
}
