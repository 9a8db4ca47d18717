package shop

import (
	"time"
)

type PlanTier string

const (
	PlanTierFree PlanTier = "free"
	PlanTierPro  PlanTier = "pro"
)

// Shop holds the per-shop settings the engines read. Settings screens own
// every field except the plan fields, which the billing webhook updates.
type Shop struct {
	ID                   string
	Name                 string
	Latitude             *float64
	Longitude            *float64
	GeofenceRadiusMeters float64
	Timezone             string
	RewardPointsNeeded   int
	RewardDescription    string
	PlanTier             PlanTier
	GracePeriodEndsAt    *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasLocation reports whether shop coordinates were configured.
func (s Shop) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Location returns the shop's time zone, falling back to UTC for unknown names.
func (s Shop) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InGracePeriod reports whether a failed payment is still inside its grace window.
func (s Shop) InGracePeriod(now time.Time) bool {
	return s.GracePeriodEndsAt != nil && now.Before(*s.GracePeriodEndsAt)
}
