package employee

import (
	"time"
)

// PinLifetime is how long a PIN stays valid after it is set.
const PinLifetime = 30 * 24 * time.Hour

type Employee struct {
	ID                string
	ShopID            string
	DisplayName       string
	PinHash           string
	PinSetAt          *time.Time
	PinExpiresAt      *time.Time
	PinChangeRequired bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PinExpired reports whether the PIN has reached its expiry at now. A PIN that
// was never set through the change-PIN flow counts as expired.
func (e Employee) PinExpired(now time.Time) bool {
	if e.PinExpiresAt == nil {
		return true
	}
	return !now.Before(*e.PinExpiresAt)
}

// MustChangePin is true when the employee has to go through the change-PIN flow
// before any session operation.
func (e Employee) MustChangePin(now time.Time) bool {
	return e.PinChangeRequired || e.PinExpired(now)
}
