package employee

import (
	"context"
	"time"
)

// EmployeeRepository is the Employee Directory. All methods are scoped by shopID.
type EmployeeRepository interface {
	// ListByShop returns every employee of the shop, active or not.
	ListByShop(ctx context.Context, shopID string) ([]Employee, error)

	GetByID(ctx context.Context, id string, shopID string) (Employee, error)

	// GetByIDForUpdate locks the employee row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string, shopID string) (Employee, error)

	UpdatePin(ctx context.Context, id string, shopID string, pinHash string, setAt time.Time, expiresAt time.Time) error

	// FlagExpiredPins sets pin_change_required on active employees whose PIN expired before now.
	FlagExpiredPins(ctx context.Context, now time.Time) (int64, error)
}
