package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Structured domain errors carry details for the device screens
	var tasksErr *shift.TasksIncompleteError
	if errors.As(err, &tasksErr) {
		Conflict(w, "TASKS_INCOMPLETE", shift.ErrTasksIncomplete.Error(), map[string]any{
			"task_names": tasksErr.TaskNames,
		})
		return
	}

	var remoteErr *shift.RemoteNotApprovedError
	if errors.As(err, &remoteErr) {
		Forbidden(w, "REMOTE_NOT_APPROVED", shift.ErrRemoteNotApproved.Error(), map[string]any{
			"distance_meters": remoteErr.DistanceMeters,
			"radius_meters":   remoteErr.RadiusMeters,
		})
		return
	}

	var cooldownErr *loyalty.CooldownError
	if errors.As(err, &cooldownErr) {
		TooManyRequests(w, "COOLDOWN_ACTIVE", cooldownErr.Error(), map[string]any{
			"remaining_minutes":   cooldownErr.RemainingMinutes,
			"last_transaction_at": cooldownErr.LastTransactionAt,
		})
		return
	}

	var notEligibleErr *loyalty.NotEligibleError
	if errors.As(err, &notEligibleErr) {
		Conflict(w, "NOT_ELIGIBLE", loyalty.ErrNotEligible.Error(), map[string]any{
			"current_points":  notEligibleErr.CurrentPoints,
			"required_points": notEligibleErr.RequiredPoints,
			"points_short":    notEligibleErr.PointsShort(),
		})
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, shift.ErrInvalidCredential):
		Unauthorized(w, err.Error())
	case errors.Is(err, shift.ErrEmployeeInactive):
		Forbidden(w, "EMPLOYEE_INACTIVE", err.Error(), nil)
	case errors.Is(err, shift.ErrPinChangeRequired):
		Forbidden(w, "PIN_CHANGE_REQUIRED", err.Error(), nil)

	// Shift errors
	case errors.Is(err, shift.ErrPinInUse):
		Conflict(w, "PIN_IN_USE", err.Error(), nil)
	case errors.Is(err, shift.ErrSessionNotFound):
		NotFound(w, "Shift session not found")
	case errors.Is(err, shift.ErrTaskNotFound):
		NotFound(w, "Task not found in this shift")
	case errors.Is(err, shift.ErrSessionAlreadyOpen):
		Conflict(w, "SESSION_ALREADY_OPEN", err.Error(), nil)
	case errors.Is(err, shift.ErrTasksIncomplete):
		Conflict(w, "TASKS_INCOMPLETE", err.Error(), nil)

	// Directory errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, shop.ErrShopNotFound):
		NotFound(w, "Shop not found")
	case errors.Is(err, shop.ErrInvalidWebhookToken):
		Unauthorized(w, err.Error())

	// Loyalty errors
	case errors.Is(err, loyalty.ErrCustomerNotFound):
		NotFound(w, "Customer not found")
	case errors.Is(err, loyalty.ErrCustomerExists):
		Conflict(w, "CUSTOMER_EXISTS", err.Error(), nil)
	case errors.Is(err, loyalty.ErrInvalidPhone):
		ValidationError(w, map[string]string{"phone": err.Error()})

	// Persistence
	case errors.Is(err, database.ErrStore):
		slog.Error("store error", "error", err)
		ServiceUnavailable(w, "Temporarily unable to reach the store, please retry")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
