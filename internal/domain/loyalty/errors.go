package loyalty

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCustomerExists   = errors.New("customer with this phone already exists")
	ErrInvalidPhone     = errors.New("phone number must contain 7 to 15 digits")
	ErrCooldownActive   = errors.New("a point was recorded for this customer recently")
	ErrNotEligible      = errors.New("customer does not have enough points for the reward")
)

// CooldownError rejects an award inside the cooldown window.
type CooldownError struct {
	RemainingMinutes  int
	LastTransactionAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, try again in %d minute(s)", ErrCooldownActive.Error(), e.RemainingMinutes)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

type NotEligibleError struct {
	CurrentPoints  int
	RequiredPoints int
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s (%d of %d)", ErrNotEligible.Error(), e.CurrentPoints, e.RequiredPoints)
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

// PointsShort is how many points the customer still needs.
func (e *NotEligibleError) PointsShort() int {
	return e.RequiredPoints - e.CurrentPoints
}
