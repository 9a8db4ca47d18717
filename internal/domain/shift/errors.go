package shift

import (
	"errors"
	"fmt"
	"strings"
)

// Shift domain errors
var (
	// Auth errors
	ErrInvalidCredential = errors.New("invalid PIN")
	ErrEmployeeInactive  = errors.New("employee account is deactivated")
	ErrPinChangeRequired = errors.New("PIN must be changed before continuing")

	// PIN change errors
	ErrPinInUse = errors.New("PIN is already used by another employee in this shop")

	// Session errors
	ErrSessionNotFound    = errors.New("open shift session not found")
	ErrSessionAlreadyOpen = errors.New("employee already has an open shift session")
	ErrTaskNotFound       = errors.New("task not found in this shift")
	ErrTasksIncomplete    = errors.New("all assigned tasks must be completed before clocking out")
	ErrRemoteNotApproved  = errors.New("clock-in away from the shop requires an active remote approval")
)

// IsAuthError reports whether err is one of the credential errors.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrEmployeeInactive) ||
		errors.Is(err, ErrPinChangeRequired)
}

// TasksIncompleteError blocks a clock-out and lists what is still pending.
type TasksIncompleteError struct {
	TaskNames []string
}

func (e *TasksIncompleteError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTasksIncomplete.Error(), strings.Join(e.TaskNames, ", "))
}

func (e *TasksIncompleteError) Is(target error) bool {
	return target == ErrTasksIncomplete
}

// RemoteNotApprovedError is returned only when the geofence gate is enforced.
type RemoteNotApprovedError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *RemoteNotApprovedError) Error() string {
	return fmt.Sprintf("%s (%.0fm away, allowed %.0fm)", ErrRemoteNotApproved.Error(), e.DistanceMeters, e.RadiusMeters)
}

func (e *RemoteNotApprovedError) Is(target error) bool {
	return target == ErrRemoteNotApproved
}
