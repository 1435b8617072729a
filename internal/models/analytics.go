package models

import (
	"strings"
	"time"
)

// TimeRange is the analytics window selector.
type TimeRange string

const (
	TimeRange30Days TimeRange = "30d"
	TimeRange90Days TimeRange = "90d"
	TimeRange1Year  TimeRange = "1y"
)

// Valid reports whether the range is one of the recognised selectors.
func (r TimeRange) Valid() bool {
	switch r {
	case TimeRange30Days, TimeRange90Days, TimeRange1Year:
		return true
	default:
		return false
	}
}

// ParseTimeRange normalises raw input. Unrecognised values fall back to 30d
// and ok reports whether the input was recognised.
func ParseTimeRange(raw string) (TimeRange, bool) {
	r := TimeRange(strings.ToLower(strings.TrimSpace(raw)))
	if r.Valid() {
		return r, true
	}
	return TimeRange30Days, false
}

// Cutoff returns the inclusive lower bound on created_at for the range.
func (r TimeRange) Cutoff(now time.Time) time.Time {
	switch r {
	case TimeRange90Days:
		return now.AddDate(0, 0, -90)
	case TimeRange1Year:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// EntitySet is the raw input of one analytics computation.
type EntitySet struct {
	Requests      []SubstituteRequest  `json:"requests"`
	Classes       []Class              `json:"classes"`
	Organizations []Organization       `json:"organizations"`
	Users         []User               `json:"users"`
	Responses     []SubstituteResponse `json:"responses"`
}

// AnalyticsSnapshot is the derived, presentation-ready metric set.
type AnalyticsSnapshot struct {
	TimeRange               TimeRange                 `json:"time_range"`
	GeneratedAt             time.Time                 `json:"generated_at"`
	TotalRequests           int                       `json:"total_requests"`
	FilledRequests          int                       `json:"filled_requests"`
	FillRate                int                       `json:"fill_rate"`
	AvgResponseTimeHours    float64                   `json:"avg_response_time_hours"`
	MostActiveOrganization  string                    `json:"most_active_organization"`
	MonthlyTrends           []MonthlyTrend            `json:"monthly_trends"`
	DayOfWeek               []DayOfWeekCount          `json:"day_of_week"`
	SubstitutePerformance   []SubstitutePerformance   `json:"substitute_performance"`
	OrganizationPerformance []OrganizationPerformance `json:"organization_performance"`
}

// MonthlyTrend counts requests created in one calendar month.
type MonthlyTrend struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Requests int    `json:"requests"`
	Filled   int    `json:"filled"`
	FillRate int    `json:"fill_rate"`
}

// DayOfWeekCount counts requests by the weekday of date_needed.
type DayOfWeekCount struct {
	Day      string `json:"day"`
	Requests int    `json:"requests"`
}

// SubstitutePerformance aggregates a substitute's recorded responses.
type SubstitutePerformance struct {
	SubstituteID   string `json:"substitute_id"`
	Name           string `json:"name"`
	Accepted       int    `json:"accepted"`
	Declined       int    `json:"declined"`
	AcceptanceRate int    `json:"acceptance_rate"`
}

// OrganizationPerformance aggregates requests per organization.
type OrganizationPerformance struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Requests       int    `json:"requests"`
	Filled         int    `json:"filled"`
	FillRate       int    `json:"fill_rate"`
}

// DashboardOverview is the landing page summary.
type DashboardOverview struct {
	TotalRequests      int               `json:"total_requests"`
	OpenRequests       int               `json:"open_requests"`
	FilledRequests     int               `json:"filled_requests"`
	CancelledRequests  int               `json:"cancelled_requests"`
	FillRate           int               `json:"fill_rate"`
	RequestsThisMonth  int               `json:"requests_this_month"`
	TotalOrganizations int               `json:"total_organizations"`
	TotalClasses       int               `json:"total_classes"`
	TotalUsers         int               `json:"total_users"`
	Admins             int               `json:"admins"`
	OrgManagers        int               `json:"org_managers"`
	Substitutes        int               `json:"substitutes"`
	ActiveUsers        int               `json:"active_users"`
	Upcoming           []UpcomingRequest `json:"upcoming"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// UpcomingRequest is an open request due within the next week.
type UpcomingRequest struct {
	RequestID  string `json:"request_id"`
	ClassName  string `json:"class_name"`
	DateNeeded string `json:"date_needed"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// AnalyticsSystemMetrics represents process level instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RemoteCalls              uint64    `json:"remote_calls"`
	AverageRemoteCallMs      float64   `json:"average_remote_call_ms"`
	ExportsTotal             uint64    `json:"exports_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
