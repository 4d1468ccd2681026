package digest

import (
	"strings"
	"time"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// Day is the weekday the weekly digest goes out.
type Day string

const (
	Monday    Day = "monday"
	Wednesday Day = "wednesday"
	Friday    Day = "friday"
)

// ParseDay normalizes s and reports whether it is a supported delivery day.
func ParseDay(s string) (Day, bool) {
	d := Day(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Monday, Wednesday, Friday:
		return d, true
	}
	return "", false
}

// Preferences governs the external weekly digest job for one user.
type Preferences struct {
	UserID        string          `json:"user_id"`
	Enabled       bool            `json:"enabled"`
	DeliveryDay   Day             `json:"delivery_day"`
	AnalysisTypes []analysis.Type `json:"analysis_types"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Default returns the preferences used before a user saves any.
func Default(userID string) Preferences {
	return Preferences{
		UserID:        userID,
		Enabled:       false,
		DeliveryDay:   Monday,
		AnalysisTypes: append([]analysis.Type(nil), analysis.Types...),
	}
}
