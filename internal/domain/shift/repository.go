package shift

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SessionRepository is the Clock Record Store. All methods include shopID to
// keep tenants isolated.
type SessionRepository interface {
	// Create inserts an open session. Returns ErrSessionAlreadyOpen when the
	// employee already holds one.
	Create(ctx context.Context, session ShiftSession) (ShiftSession, error)

	// GetOpenByEmployee returns ErrSessionNotFound when the employee has no open session.
	GetOpenByEmployee(ctx context.Context, employeeID string, shopID string) (ShiftSession, error)

	// GetByIDForUpdate locks the session row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string, shopID string) (ShiftSession, error)

	UpdateTasks(ctx context.Context, id string, shopID string, tasks []TaskSnapshot) error

	Close(ctx context.Context, id string, shopID string, clockOut time.Time, hoursWorked decimal.Decimal) error

	// CountOpenByEmployee is used by audits and tests of the single-open-session invariant.
	CountOpenByEmployee(ctx context.Context, employeeID string, shopID string) (int, error)
}

type TaskRepository interface {
	// ListActiveForEmployee returns active tasks assigned to everyone or to employeeID, in display order.
	ListActiveForEmployee(ctx context.Context, shopID string, employeeID string) ([]Task, error)
}

type RemoteApprovalRepository interface {
	ListActiveByEmployee(ctx context.Context, employeeID string, shopID string) ([]RemoteApproval, error)
}
