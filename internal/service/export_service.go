package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/export"
)

const exportTimestampLayout = "2006-01-02 15:04:05"

// Artifact is one serialized export together with its suggested filename.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sink delivers artifacts to their destination.
type Sink interface {
	Deliver(ctx context.Context, artifact Artifact) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, artifact Artifact) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, artifact Artifact) error {
	return f(ctx, artifact)
}

type artifactRenderer interface {
	Render(format export.Format, title string, sections []export.Section) ([]byte, error)
	RenderText(format export.Format, title string, lines []string) ([]byte, error)
}

// ExportService turns entity collections and analytics into report artifacts.
type ExportService struct {
	source   EntitySource
	engine   *AnalyticsEngine
	renderer artifactRenderer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(source EntitySource, engine *AnalyticsEngine, renderer artifactRenderer, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if engine == nil {
		engine = NewAnalyticsEngine()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{source: source, engine: engine, renderer: renderer, metrics: metrics, logger: logger}
}

// Export builds the artifacts for kind and hands each one to sink. A delivery
// failure is reported as EXPORT_DELIVERY_FAILED and stops the remaining deliveries.
func (s *ExportService) Export(ctx context.Context, kind models.ExportKind, r models.TimeRange, format export.Format, sink Sink) ([]Artifact, error) {
	if sink == nil {
		return nil, appErrors.Clone(appErrors.ErrExportDelivery, "no export destination configured")
	}
	artifacts, err := s.Build(ctx, kind, r, format)
	if err != nil {
		return nil, err
	}
	for _, artifact := range artifacts {
		if err := sink.Deliver(ctx, artifact); err != nil {
			s.metrics.RecordExport(string(kind), string(format), false)
			s.logger.Warn("export delivery failed", zap.String("filename", artifact.Filename), zap.Error(err))
			return nil, appErrors.WrapAs(appErrors.ErrExportDelivery, err, fmt.Sprintf("failed to deliver %s", artifact.Filename))
		}
		s.metrics.RecordExport(string(kind), string(format), true)
	}
	return artifacts, nil
}

// Build fetches the current entity set and renders the artifacts for kind.
func (s *ExportService) Build(ctx context.Context, kind models.ExportKind, r models.TimeRange, format export.Format) ([]Artifact, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export kind %q", kind))
	}
	if format == "" {
		format = export.FormatCSV
	}
	if !r.Valid() {
		r = models.TimeRange30Days
	}
	// Exports run unscoped so they never cancel a dashboard or a queued job.
	set, err := s.source.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return s.Render(set, kind, r, format)
}

// Render produces artifacts from an already fetched entity set.
func (s *ExportService) Render(set models.EntitySet, kind models.ExportKind, r models.TimeRange, format export.Format) ([]Artifact, error) {
	now := s.engine.Now()
	loc := s.engine.Location()

	switch kind {
	case models.ExportKindRequests:
		return s.single(format, "Substitute Requests", ArtifactFilename(kind, "", format, now),
			export.Section{Dataset: RequestsDataset(set.Requests, set.Classes, set.Organizations, set.Users, loc)})
	case models.ExportKindUsers:
		return s.single(format, "Users", ArtifactFilename(kind, "", format, now),
			export.Section{Dataset: UsersDataset(set.Users, set.Organizations, loc)})
	case models.ExportKindClasses:
		return s.single(format, "Classes", ArtifactFilename(kind, "", format, now),
			export.Section{Dataset: ClassesDataset(set.Classes, set.Organizations, loc)})
	case models.ExportKindOrganizations:
		return s.single(format, "Organizations", ArtifactFilename(kind, "", format, now),
			export.Section{Dataset: OrganizationsDataset(set.Organizations, loc)})
	case models.ExportKindAnalytics:
		snapshot := s.engine.Compute(set, r)
		return s.single(format, fmt.Sprintf("Analytics Report (%s)", r), ArtifactFilename(kind, r, format, now),
			AnalyticsSections(snapshot)...)
	case models.ExportKindFullReport:
		return s.fullReport(set, r, format, now, loc)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export kind %q", kind))
	}
}

func (s *ExportService) single(format export.Format, title, filename string, sections ...export.Section) ([]Artifact, error) {
	content, err := s.renderer.Render(format, title, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return []Artifact{{Filename: filename, ContentType: format.ContentType(), Content: content}}, nil
}

// fullReport is a summary artifact plus the requests detail artifact, both
// computed from the time-filtered requests.
func (s *ExportService) fullReport(set models.EntitySet, r models.TimeRange, format export.Format, now time.Time, loc *time.Location) ([]Artifact, error) {
	filtered := FilterByTimeRange(set.Requests, r, now)

	summary, err := s.renderer.RenderText(format, "Substitute Finder Report", SummaryLines(set, filtered, r, now, format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render summary report")
	}
	artifacts := []Artifact{{
		Filename:    ArtifactFilename(models.ExportKindFullReport, r, format, now),
		ContentType: format.ContentType(),
		Content:     summary,
	}}

	detail, err := s.single(format, "Substitute Requests", ArtifactFilename(models.ExportKindRequests, "", format, now),
		export.Section{Dataset: RequestsDataset(filtered, set.Classes, set.Organizations, set.Users, loc)})
	if err != nil {
		return nil, err
	}
	return append(artifacts, detail...), nil
}

// ArtifactFilename follows <kind>-<date>.<ext>; analytics exports carry the
// range. The date is the UTC calendar day of now.
func ArtifactFilename(kind models.ExportKind, r models.TimeRange, format export.Format, now time.Time) string {
	date := now.UTC().Format(models.DateLayout)
	switch kind {
	case models.ExportKindRequests:
		return fmt.Sprintf("substitute-requests-%s.%s", date, format.Extension())
	case models.ExportKindAnalytics:
		return fmt.Sprintf("analytics-report-%s-%s.%s", r, date, format.Extension())
	case models.ExportKindFullReport:
		return fmt.Sprintf("summary-report-%s.%s", date, format.Extension())
	default:
		return fmt.Sprintf("%s-%s.%s", kind, date, format.Extension())
	}
}

// RequestsDataset lists requests with class, organization and people resolved to names.
func RequestsDataset(requests []models.SubstituteRequest, classes []models.Class, orgs []models.Organization, users []models.User, loc *time.Location) export.Dataset {
	classByID := indexClasses(classes)
	orgNames := indexOrganizationNames(orgs)
	userByID := indexUsers(users)

	rows := make([][]string, 0, len(requests))
	for _, req := range requests {
		className, orgName := UnknownClass, UnknownOrganization
		if c, ok := classByID[req.ClassID]; ok {
			className = c.Name
			if name, ok := orgNames[c.OrganizationID]; ok {
				orgName = name
			}
		}
		requestedBy := UnknownUser
		if u, ok := userByID[req.RequestedBy]; ok {
			requestedBy = u.FullName()
		}
		assigned := ""
		if req.AssignedSubstituteID != nil && *req.AssignedSubstituteID != "" {
			assigned = UnknownUser
			if u, ok := userByID[*req.AssignedSubstituteID]; ok {
				assigned = u.FullName()
			}
		}
		rows = append(rows, []string{
			req.ID,
			className,
			orgName,
			req.DateNeeded,
			req.StartTime,
			req.EndTime,
			string(req.Status),
			requestedBy,
			assigned,
			deref(req.Reason),
			deref(req.SpecialInstructions),
			formatTimestamp(req.CreatedAt, loc),
			formatTimestamp(req.UpdatedAt, loc),
		})
	}
	return export.Dataset{
		Headers: []string{"Request ID", "Class Name", "Organization", "Date Needed", "Start Time", "End Time", "Status", "Requested By", "Assigned Substitute", "Reason", "Special Instructions", "Created At", "Updated At"},
		Rows:    rows,
	}
}

// UsersDataset lists accounts. Users without an organization get an empty cell.
func UsersDataset(users []models.User, orgs []models.Organization, loc *time.Location) export.Dataset {
	orgNames := indexOrganizationNames(orgs)
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		active := "No"
		if u.IsActive {
			active = "Yes"
		}
		rows = append(rows, []string{
			u.ID,
			u.Username,
			u.Email,
			u.FirstName,
			u.LastName,
			string(u.Role),
			optionalOrganization(u.OrganizationID, orgNames),
			active,
			formatTimestamp(u.CreatedAt, loc),
			formatTimestamp(u.UpdatedAt, loc),
		})
	}
	return export.Dataset{
		Headers: []string{"User ID", "Username", "Email", "First Name", "Last Name", "Role", "Organization", "Active", "Created At", "Updated At"},
		Rows:    rows,
	}
}

// ClassesDataset lists classes with their organization name.
func ClassesDataset(classes []models.Class, orgs []models.Organization, loc *time.Location) export.Dataset {
	orgNames := indexOrganizationNames(orgs)
	rows := make([][]string, 0, len(classes))
	for _, c := range classes {
		orgName, ok := orgNames[c.OrganizationID]
		if !ok {
			orgName = UnknownOrganization
		}
		rows = append(rows, []string{
			c.ID,
			c.Name,
			orgName,
			deref(c.Subject),
			deref(c.GradeLevel),
			deref(c.RoomNumber),
			deref(c.Description),
			formatTimestamp(c.CreatedAt, loc),
			formatTimestamp(c.UpdatedAt, loc),
		})
	}
	return export.Dataset{
		Headers: []string{"Class ID", "Name", "Organization", "Subject", "Grade Level", "Room Number", "Description", "Created At", "Updated At"},
		Rows:    rows,
	}
}

// OrganizationsDataset lists organizations with their parent's name.
func OrganizationsDataset(orgs []models.Organization, loc *time.Location) export.Dataset {
	orgNames := indexOrganizationNames(orgs)
	rows := make([][]string, 0, len(orgs))
	for _, o := range orgs {
		rows = append(rows, []string{
			o.ID,
			o.Name,
			optionalOrganization(o.ParentOrganizationID, orgNames),
			deref(o.Description),
			deref(o.ContactEmail),
			deref(o.ContactPhone),
			formatTimestamp(o.CreatedAt, loc),
			formatTimestamp(o.UpdatedAt, loc),
		})
	}
	return export.Dataset{
		Headers: []string{"Organization ID", "Name", "Parent Organization", "Description", "Contact Email", "Contact Phone", "Created At", "Updated At"},
		Rows:    rows,
	}
}

// AnalyticsSections lays a snapshot out as the five report sections.
func AnalyticsSections(snapshot models.AnalyticsSnapshot) []export.Section {
	monthly := make([][]string, 0, len(snapshot.MonthlyTrends))
	for _, m := range snapshot.MonthlyTrends {
		monthly = append(monthly, []string{m.Month, itoa(m.Requests), itoa(m.Filled), itoa(m.FillRate)})
	}
	days := make([][]string, 0, len(snapshot.DayOfWeek))
	for _, d := range snapshot.DayOfWeek {
		days = append(days, []string{d.Day, itoa(d.Requests)})
	}
	subs := make([][]string, 0, len(snapshot.SubstitutePerformance))
	for _, p := range snapshot.SubstitutePerformance {
		subs = append(subs, []string{p.Name, itoa(p.Accepted), itoa(p.Declined), itoa(p.AcceptanceRate)})
	}
	orgs := make([][]string, 0, len(snapshot.OrganizationPerformance))
	for _, o := range snapshot.OrganizationPerformance {
		orgs = append(orgs, []string{o.Name, itoa(o.Requests), itoa(o.FillRate)})
	}

	return []export.Section{
		{Title: "ANALYTICS SUMMARY", Dataset: export.Dataset{
			Headers: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Time Range", string(snapshot.TimeRange)},
				{"Total Requests", itoa(snapshot.TotalRequests)},
				{"Fill Rate (%)", itoa(snapshot.FillRate)},
				{"Average Response Time (hours)", strconv.FormatFloat(snapshot.AvgResponseTimeHours, 'f', -1, 64)},
				{"Most Active Organization", snapshot.MostActiveOrganization},
			},
		}},
		{Title: "MONTHLY TRENDS", Dataset: export.Dataset{Headers: []string{"Month", "Total Requests", "Filled Requests", "Fill Rate (%)"}, Rows: monthly}},
		{Title: "DAY OF WEEK ANALYSIS", Dataset: export.Dataset{Headers: []string{"Day of Week", "Request Count"}, Rows: days}},
		{Title: "SUBSTITUTE PERFORMANCE", Dataset: export.Dataset{Headers: []string{"Substitute Name", "Accepted", "Declined", "Acceptance Rate (%)"}, Rows: subs}},
		{Title: "ORGANIZATION PERFORMANCE", Dataset: export.Dataset{Headers: []string{"Organization", "Total Requests", "Fill Rate (%)"}, Rows: orgs}},
	}
}

// SummaryLines renders the plain-text block of the full report. Status
// counts are taken from filtered and always sum to its length.
func SummaryLines(set models.EntitySet, filtered []models.SubstituteRequest, r models.TimeRange, now time.Time, format export.Format) []string {
	total := len(filtered)
	filled := countStatus(filtered, models.RequestStatusFilled)
	substitutes := 0
	for _, u := range set.Users {
		if u.Role == models.RoleSubstitute {
			substitutes++
		}
	}
	date := now.Format(models.DateLayout)
	ext := format.Extension()

	return []string{
		"=== SUBSTITUTE FINDER APP REPORT ===",
		"Generated: " + now.Format(exportTimestampLayout),
		"Time Range: " + string(r),
		"",
		"=== SUMMARY METRICS ===",
		fmt.Sprintf("Total Requests: %d", total),
		fmt.Sprintf("Filled Requests: %d", filled),
		fmt.Sprintf("Open Requests: %d", countStatus(filtered, models.RequestStatusOpen)),
		fmt.Sprintf("Cancelled Requests: %d", countStatus(filtered, models.RequestStatusCancelled)),
		fmt.Sprintf("Fill Rate: %d%%", percentage(filled, total)),
		"",
		fmt.Sprintf("Total Organizations: %d", len(set.Organizations)),
		fmt.Sprintf("Total Classes: %d", len(set.Classes)),
		fmt.Sprintf("Total Users: %d", len(set.Users)),
		fmt.Sprintf("Substitute Teachers: %d", substitutes),
		"",
		"=== DETAILED DATA ===",
		"See individual files for detailed breakdowns:",
		fmt.Sprintf("- substitute-requests-%s.%s", date, ext),
		fmt.Sprintf("- users-%s.%s", date, ext),
		fmt.Sprintf("- classes-%s.%s", date, ext),
		fmt.Sprintf("- organizations-%s.%s", date, ext),
	}
}

func indexClasses(classes []models.Class) map[string]models.Class {
	out := make(map[string]models.Class, len(classes))
	for _, c := range classes {
		out[c.ID] = c
	}
	return out
}

func indexOrganizationNames(orgs []models.Organization) map[string]string {
	out := make(map[string]string, len(orgs))
	for _, o := range orgs {
		out[o.ID] = o.Name
	}
	return out
}

func indexUsers(users []models.User) map[string]models.User {
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

func optionalOrganization(id *string, names map[string]string) string {
	if id == nil || *id == "" {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return UnknownOrganization
}

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(exportTimestampLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
