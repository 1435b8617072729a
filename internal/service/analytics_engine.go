package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/substitute-finder-api/internal/models"
)

// Sentinel labels used when a foreign key does not resolve.
const (
	UnknownOrganization = "Unknown Organization"
	UnknownClass        = "Unknown Class"
	UnknownUser         = "Unknown User"

	noActiveOrganization = "N/A"
	trendMonths          = 6
	performanceLimit     = 5
	upcomingWindowDays   = 7
)

// EngineOption customises an AnalyticsEngine.
type EngineOption func(*AnalyticsEngine)

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *AnalyticsEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone used for calendar bucketing.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *AnalyticsEngine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// AnalyticsEngine derives metrics from raw entity collections. It is pure:
// missing references degrade to sentinel labels and nothing returns an error.
type AnalyticsEngine struct {
	now func() time.Time
	loc *time.Location
}

// NewAnalyticsEngine constructs an engine using UTC and the wall clock by default.
func NewAnalyticsEngine(opts ...EngineOption) *AnalyticsEngine {
	e := &AnalyticsEngine{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock in the engine location.
func (e *AnalyticsEngine) Now() time.Time {
	return e.now().In(e.loc)
}

// Location returns the zone used for calendar bucketing.
func (e *AnalyticsEngine) Location() *time.Location {
	return e.loc
}

// FilterByTimeRange keeps requests created at or after the range cutoff.
// There is no upper bound.
func FilterByTimeRange(requests []models.SubstituteRequest, r models.TimeRange, now time.Time) []models.SubstituteRequest {
	cutoff := r.Cutoff(now)
	filtered := make([]models.SubstituteRequest, 0, len(requests))
	for _, req := range requests {
		if !req.CreatedAt.Before(cutoff) {
			filtered = append(filtered, req)
		}
	}
	return filtered
}

// Compute builds the analytics snapshot for the given window.
func (e *AnalyticsEngine) Compute(set models.EntitySet, r models.TimeRange) models.AnalyticsSnapshot {
	if !r.Valid() {
		r = models.TimeRange30Days
	}
	now := e.Now()
	filtered := FilterByTimeRange(set.Requests, r, now)
	filled := countStatus(filtered, models.RequestStatusFilled)
	orgByClass := classOrganizations(set.Classes)

	return models.AnalyticsSnapshot{
		TimeRange:               r,
		GeneratedAt:             now,
		TotalRequests:           len(filtered),
		FilledRequests:          filled,
		FillRate:                percentage(filled, len(filtered)),
		AvgResponseTimeHours:    averageResponseHours(filtered, set.Responses),
		MostActiveOrganization:  mostActiveOrganization(filtered, set.Organizations, orgByClass),
		MonthlyTrends:           e.monthlyTrends(filtered, now),
		DayOfWeek:               e.dayOfWeek(filtered),
		SubstitutePerformance:   substitutePerformance(set.Users, set.Responses, r.Cutoff(now)),
		OrganizationPerformance: organizationPerformance(filtered, set.Organizations, orgByClass),
	}
}

// Overview summarises the whole dataset for the landing page.
func (e *AnalyticsEngine) Overview(set models.EntitySet) models.DashboardOverview {
	now := e.Now()
	overview := models.DashboardOverview{
		TotalRequests:      len(set.Requests),
		OpenRequests:       countStatus(set.Requests, models.RequestStatusOpen),
		FilledRequests:     countStatus(set.Requests, models.RequestStatusFilled),
		CancelledRequests:  countStatus(set.Requests, models.RequestStatusCancelled),
		TotalOrganizations: len(set.Organizations),
		TotalClasses:       len(set.Classes),
		TotalUsers:         len(set.Users),
		Upcoming:           make([]models.UpcomingRequest, 0),
		GeneratedAt:        now,
	}
	overview.FillRate = percentage(overview.FilledRequests, overview.TotalRequests)

	for _, u := range set.Users {
		switch u.Role {
		case models.RoleAdmin:
			overview.Admins++
		case models.RoleOrgManager:
			overview.OrgManagers++
		case models.RoleSubstitute:
			overview.Substitutes++
		}
		if u.IsActive {
			overview.ActiveUsers++
		}
	}

	for _, req := range set.Requests {
		created := req.CreatedAt.In(e.loc)
		if created.Year() == now.Year() && created.Month() == now.Month() {
			overview.RequestsThisMonth++
		}
	}

	className := make(map[string]string, len(set.Classes))
	for _, c := range set.Classes {
		className[c.ID] = c.Name
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	horizon := today.AddDate(0, 0, upcomingWindowDays)
	type upcoming struct {
		date time.Time
		item models.UpcomingRequest
	}
	due := make([]upcoming, 0)
	for _, req := range set.Requests {
		if req.Status != models.RequestStatusOpen {
			continue
		}
		date, ok := req.DateNeededIn(e.loc)
		if !ok || date.Before(today) || date.After(horizon) {
			continue
		}
		name, found := className[req.ClassID]
		if !found {
			name = UnknownClass
		}
		due = append(due, upcoming{date: date, item: models.UpcomingRequest{
			RequestID:  req.ID,
			ClassName:  name,
			DateNeeded: req.DateNeeded,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
		}})
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].date.Before(due[j].date) })
	for _, d := range due {
		overview.Upcoming = append(overview.Upcoming, d.item)
	}
	return overview
}

func (e *AnalyticsEngine) monthlyTrends(requests []models.SubstituteRequest, now time.Time) []models.MonthlyTrend {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, e.loc)
	trends := make([]models.MonthlyTrend, trendMonths)
	for i := range trends {
		month := first.AddDate(0, i-(trendMonths-1), 0)
		trends[i] = models.MonthlyTrend{Month: month.Month().String()[:3], Year: month.Year()}
	}

	for _, req := range requests {
		created := req.CreatedAt.In(e.loc)
		i := (created.Year()-first.Year())*12 + int(created.Month()) - int(first.Month()) + trendMonths - 1
		if i < 0 || i >= trendMonths {
			continue
		}
		trends[i].Requests++
		if req.Status == models.RequestStatusFilled {
			trends[i].Filled++
		}
	}
	for i := range trends {
		trends[i].FillRate = percentage(trends[i].Filled, trends[i].Requests)
	}
	return trends
}

func (e *AnalyticsEngine) dayOfWeek(requests []models.SubstituteRequest) []models.DayOfWeekCount {
	days := make([]models.DayOfWeekCount, 7)
	for i := range days {
		days[i].Day = time.Weekday(i).String()
	}
	for _, req := range requests {
		date, ok := req.DateNeededIn(e.loc)
		if !ok {
			continue
		}
		days[date.Weekday()].Requests++
	}
	return days
}

func classOrganizations(classes []models.Class) map[string]string {
	out := make(map[string]string, len(classes))
	for _, c := range classes {
		out[c.ID] = c.OrganizationID
	}
	return out
}

func requestsPerOrganization(requests []models.SubstituteRequest, orgByClass map[string]string) (map[string]int, map[string]int) {
	total := make(map[string]int)
	filled := make(map[string]int)
	for _, req := range requests {
		orgID, ok := orgByClass[req.ClassID]
		if !ok {
			continue
		}
		total[orgID]++
		if req.Status == models.RequestStatusFilled {
			filled[orgID]++
		}
	}
	return total, filled
}

func mostActiveOrganization(requests []models.SubstituteRequest, orgs []models.Organization, orgByClass map[string]string) string {
	counts, _ := requestsPerOrganization(requests, orgByClass)
	best, bestCount := noActiveOrganization, 0
	for _, org := range orgs {
		if counts[org.ID] > bestCount {
			best, bestCount = org.Name, counts[org.ID]
		}
	}
	return best
}

func organizationPerformance(requests []models.SubstituteRequest, orgs []models.Organization, orgByClass map[string]string) []models.OrganizationPerformance {
	counts, filled := requestsPerOrganization(requests, orgByClass)
	out := make([]models.OrganizationPerformance, 0, len(orgs))
	for _, org := range orgs {
		n := counts[org.ID]
		if n == 0 {
			continue
		}
		out = append(out, models.OrganizationPerformance{
			OrganizationID: org.ID,
			Name:           org.Name,
			Requests:       n,
			Filled:         filled[org.ID],
			FillRate:       percentage(filled[org.ID], n),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Requests > out[j].Requests })
	if len(out) > performanceLimit {
		out = out[:performanceLimit]
	}
	return out
}

// substitutePerformance ranks substitutes by accepted responses recorded
// since cutoff. Responders missing from users are reported as Unknown User.
func substitutePerformance(users []models.User, responses []models.SubstituteResponse, cutoff time.Time) []models.SubstitutePerformance {
	index := make(map[string]int)
	out := make([]models.SubstitutePerformance, 0)
	for _, u := range users {
		if u.Role != models.RoleSubstitute {
			continue
		}
		index[u.ID] = len(out)
		out = append(out, models.SubstitutePerformance{SubstituteID: u.ID, Name: u.FullName()})
	}

	for _, resp := range responses {
		if resp.ResponseTime.Before(cutoff) {
			continue
		}
		i, ok := index[resp.SubstituteID]
		if !ok {
			i = len(out)
			index[resp.SubstituteID] = i
			out = append(out, models.SubstitutePerformance{SubstituteID: resp.SubstituteID, Name: UnknownUser})
		}
		switch resp.Response {
		case models.ResponseAccepted:
			out[i].Accepted++
		case models.ResponseDeclined:
			out[i].Declined++
		}
	}

	for i := range out {
		out[i].AcceptanceRate = percentage(out[i].Accepted, out[i].Accepted+out[i].Declined)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Accepted > out[j].Accepted })
	if len(out) > performanceLimit {
		out = out[:performanceLimit]
	}
	return out
}

// averageResponseHours is the mean delay between a request's creation and
// its first accepted response, rounded to one decimal.
func averageResponseHours(requests []models.SubstituteRequest, responses []models.SubstituteResponse) float64 {
	firstAccepted := make(map[string]time.Time)
	for _, resp := range responses {
		if resp.Response != models.ResponseAccepted {
			continue
		}
		if prev, ok := firstAccepted[resp.RequestID]; !ok || resp.ResponseTime.Before(prev) {
			firstAccepted[resp.RequestID] = resp.ResponseTime
		}
	}

	var total float64
	var n int
	for _, req := range requests {
		at, ok := firstAccepted[req.ID]
		if !ok || at.Before(req.CreatedAt) {
			continue
		}
		total += at.Sub(req.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(total/float64(n)*10) / 10
}

func countStatus(requests []models.SubstituteRequest, status models.RequestStatus) int {
	n := 0
	for _, req := range requests {
		if req.Status == status {
			n++
		}
	}
	return n
}

// percentage returns round(part/total*100), or 0 when total is zero.
func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
