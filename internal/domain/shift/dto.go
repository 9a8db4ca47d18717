package shift

import (
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
)

// ========================================
// PIN DTOs
// ========================================

type VerifyPinRequest struct {
	ShopID string `json:"-"`
	Pin    string `json:"pin"`
}

func (r *VerifyPinRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ShopID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shop_id",
			Message: "shop_id must be a valid UUID",
		})
	}

	if !validator.IsValidPin(r.Pin) {
		errs = append(errs, validator.ValidationError{
			Field:   "pin",
			Message: "pin must be exactly 4 digits",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ChangePinRequest struct {
	EmployeeID string `json:"-"`
	ShopID     string `json:"-"`
	NewPin     string `json:"new_pin"`
	ConfirmPin string `json:"confirm_pin"`
}

func (r *ChangePinRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if !validator.IsValidPin(r.NewPin) {
		errs = append(errs, validator.ValidationError{
			Field:   "new_pin",
			Message: "new_pin must be exactly 4 digits",
		})
	} else if r.NewPin != r.ConfirmPin {
		errs = append(errs, validator.ValidationError{
			Field:   "confirm_pin",
			Message: "confirm_pin does not match new_pin",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type VerifyPinResponse struct {
	EmployeeID     string       `json:"employee_id"`
	DisplayName    string       `json:"display_name"`
	Lifecycle      PinLifecycle `json:"pin"`
	Token          string       `json:"token"`
	TokenExpiresAt time.Time    `json:"token_expires_at"`
}

// ========================================
// SESSION DTOs
// ========================================

type OpenSessionRequest struct {
	EmployeeID string  `json:"-"`
	ShopID     string  `json:"-"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

func (r *OpenSessionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type TaskToggleRequest struct {
	EmployeeID string
	ShopID     string
	SessionID  string
	TaskID     string
}

type CloseSessionRequest struct {
	EmployeeID string
	ShopID     string
	SessionID  string
}

type SessionResponse struct {
	ID               string         `json:"id"`
	EmployeeID       string         `json:"employee_id"`
	ClockInTime      time.Time      `json:"clock_in_time"`
	ClockOutTime     *time.Time     `json:"clock_out_time,omitempty"`
	Tasks            []TaskSnapshot `json:"tasks"`
	HoursWorked      *string        `json:"hours_worked,omitempty"`
	Open             bool           `json:"open"`
	AllTasksComplete bool           `json:"all_tasks_complete"`
}

func NewSessionResponse(s ShiftSession) SessionResponse {
	resp := SessionResponse{
		ID:               s.ID,
		EmployeeID:       s.EmployeeID,
		ClockInTime:      s.ClockInTime,
		ClockOutTime:     s.ClockOutTime,
		Tasks:            s.TasksAssigned,
		Open:             s.IsOpen(),
		AllTasksComplete: len(s.IncompleteTasks()) == 0,
	}
	if resp.Tasks == nil {
		resp.Tasks = []TaskSnapshot{}
	}
	if s.HoursWorked != nil {
		hours := s.HoursWorked.StringFixed(2)
		resp.HoursWorked = &hours
	}
	return resp
}

type OpenSessionResponse struct {
	Session    SessionResponse `json:"session"`
	Resumed    bool            `json:"resumed"`
	Remoteness Remoteness      `json:"remoteness"`
}

type EmployeeResponse struct {
	ID           string     `json:"id"`
	DisplayName  string     `json:"display_name"`
	PinExpiresAt *time.Time `json:"pin_expires_at,omitempty"`
}

func NewEmployeeResponse(e employee.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:           e.ID,
		DisplayName:  e.DisplayName,
		PinExpiresAt: e.PinExpiresAt,
	}
}
