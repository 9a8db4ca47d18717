package shift

import (
	"context"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
)

// ShiftService is the Shift Session Engine. It is the only writer of shift
// sessions and employee PIN fields.
type ShiftService interface {
	// VerifyPin identifies the employee of shopID that owns pin.
	VerifyPin(ctx context.Context, req VerifyPinRequest) (employee.Employee, error)

	CheckPinLifecycle(emp employee.Employee) PinLifecycle

	ChangePin(ctx context.Context, req ChangePinRequest) (employee.Employee, error)

	// OpenOrResumeSession returns the employee's open session, creating one when none exists.
	OpenOrResumeSession(ctx context.Context, req OpenSessionRequest, site shop.Shop) (SessionResult, error)

	GetOpenSession(ctx context.Context, employeeID string, shopID string) (ShiftSession, error)

	ToggleTask(ctx context.Context, req TaskToggleRequest) (ShiftSession, error)

	CloseSession(ctx context.Context, req CloseSessionRequest) (ShiftSession, error)

	EvaluateRemoteness(ctx context.Context, session ShiftSession, site shop.Shop) (Remoteness, error)
}
