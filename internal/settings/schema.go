package settings

// Notifications controls which events raise in-app and desktop notifications.
type Notifications struct {
	Desktop          bool `json:"desktop"`
	InApp            bool `json:"inApp"`
	RequestCreated   bool `json:"requestCreated"`
	RequestFilled    bool `json:"requestFilled"`
	RequestCancelled bool `json:"requestCancelled"`
	AutoMarkRead     bool `json:"autoMarkRead"`
	SoundEnabled     bool `json:"soundEnabled"`
}

// System holds refresh and locale preferences.
type System struct {
	AutoRefreshInterval int    `json:"autoRefreshInterval" validate:"min=1,max=60"`
	DefaultTimeRange    string `json:"defaultTimeRange" validate:"oneof=30d 90d 1y"`
	Timezone            string `json:"timezone" validate:"required,timezone"`
	DateFormat          string `json:"dateFormat" validate:"oneof=MM/dd/yyyy dd/MM/yyyy yyyy-MM-dd"`
	TimeFormat          string `json:"timeFormat" validate:"oneof=12h 24h"`
}

// Export holds defaults for generated reports.
type Export struct {
	DefaultFormat     string `json:"defaultFormat" validate:"oneof=csv excel xlsx pdf"`
	IncludeTimestamps bool   `json:"includeTimestamps"`
	IncludeSummary    bool   `json:"includeSummary"`
	MaxRows           int    `json:"maxRows" validate:"min=1,max=1000000"`
}

// UI holds presentation preferences.
type UI struct {
	Theme        string `json:"theme" validate:"oneof=light dark system"`
	CompactMode  bool   `json:"compactMode"`
	ShowHelpTips bool   `json:"showHelpTips"`
	DefaultPage  string `json:"defaultPage" validate:"required,max=64"`
}

// Security holds session preferences. Values are minutes and days.
type Security struct {
	SessionTimeout         int  `json:"sessionTimeout" validate:"min=5,max=1440"`
	RequirePasswordChange  bool `json:"requirePasswordChange"`
	PasswordChangeInterval int  `json:"passwordChangeInterval" validate:"min=1,max=365"`
	EnableAuditLog         bool `json:"enableAuditLog"`
}

// Settings is the complete admin preference document.
type Settings struct {
	Notifications Notifications `json:"notifications"`
	System        System        `json:"system"`
	Export        Export        `json:"export"`
	UI            UI            `json:"ui"`
	Security      Security      `json:"security"`
}

// Defaults returns the factory settings. An empty timezone means UTC.
func Defaults(timezone string) Settings {
	if timezone == "" {
		timezone = "UTC"
	}
	return Settings{
		Notifications: Notifications{
			Desktop:        true,
			InApp:          true,
			RequestCreated: true,
			RequestFilled:  true,
			SoundEnabled:   true,
		},
		System: System{
			AutoRefreshInterval: 5,
			DefaultTimeRange:    "30d",
			Timezone:            timezone,
			DateFormat:          "MM/dd/yyyy",
			TimeFormat:          "12h",
		},
		Export: Export{
			DefaultFormat:     "csv",
			IncludeTimestamps: true,
			IncludeSummary:    true,
			MaxRows:           10000,
		},
		UI: UI{
			Theme:        "system",
			ShowHelpTips: true,
			DefaultPage:  "dashboard",
		},
		Security: Security{
			SessionTimeout:         480,
			PasswordChangeInterval: 90,
			EnableAuditLog:         true,
		},
	}
}
