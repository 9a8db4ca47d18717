package shift

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskSnapshot is a task copied into a session at clock-in. Later edits to the
// task list do not change an open session.
type TaskSnapshot struct {
	TaskID    string `json:"task_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type ShiftSession struct {
	ID               string
	EmployeeID       string
	ShopID           string
	ClockInTime      time.Time
	ClockOutTime     *time.Time
	TasksAssigned    []TaskSnapshot
	HoursWorked      *decimal.Decimal
	ClockInLatitude  *float64
	ClockInLongitude *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOpen reports whether the session has not been clocked out yet.
func (s ShiftSession) IsOpen() bool {
	return s.ClockOutTime == nil
}

// IncompleteTasks returns the names of snapshot tasks still pending, in snapshot order.
func (s ShiftSession) IncompleteTasks() []string {
	var names []string
	for _, t := range s.TasksAssigned {
		if !t.Completed {
			names = append(names, t.Name)
		}
	}
	return names
}

// ToggleTask flips the completed flag of taskID in place.
func (s *ShiftSession) ToggleTask(taskID string) error {
	for i := range s.TasksAssigned {
		if s.TasksAssigned[i].TaskID == taskID {
			s.TasksAssigned[i].Completed = !s.TasksAssigned[i].Completed
			return nil
		}
	}
	return ErrTaskNotFound
}

// HoursWorked returns the elapsed time between clock-in and clock-out in hours,
// rounded to two decimals. A clock-out before clock-in yields zero.
func HoursWorked(clockIn, clockOut time.Time) decimal.Decimal {
	if clockOut.Before(clockIn) {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(clockOut.Sub(clockIn))).
		Div(decimal.NewFromInt(int64(time.Hour))).
		Round(2)
}

// Task is a shop task definition. AssignedTo nil means every employee.
type Task struct {
	ID         string
	ShopID     string
	Name       string
	AssignedTo *string
	Active     bool
	SortOrder  int
}

// RemoteApproval lets an employee clock in away from the shop on given weekdays
// inside a date range.
type RemoteApproval struct {
	ID         string
	EmployeeID string
	ShopID     string
	Weekdays   []int // 0 = Sunday
	StartDate  time.Time
	EndDate    time.Time
	Active     bool
	Notes      *string
}

// IsValidAt reports whether the approval covers t. t must already be in the
// shop's time zone; StartDate and EndDate are compared as calendar dates.
func (a RemoteApproval) IsValidAt(t time.Time) bool {
	if !a.Active {
		return false
	}

	day := calendarDate(t)
	if day.Before(calendarDate(a.StartDate)) || day.After(calendarDate(a.EndDate)) {
		return false
	}

	weekday := int(t.Weekday())
	for _, d := range a.Weekdays {
		if d == weekday {
			return true
		}
	}
	return false
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Remoteness is the advisory result of comparing clock-in coordinates with the shop.
type Remoteness struct {
	OnSite         bool    `json:"on_site"`
	DistanceMeters float64 `json:"distance_meters"`
	PreApproved    bool    `json:"pre_approved"`
	// Unknown is set when the shop has no coordinates configured.
	Unknown bool `json:"unknown,omitempty"`
}

// PinLifecycle tells the caller whether to force the change-PIN flow.
type PinLifecycle struct {
	MustChangePin bool       `json:"must_change_pin"`
	Expired       bool       `json:"expired"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// SessionResult is returned by OpenOrResumeSession.
type SessionResult struct {
	Session    ShiftSession
	Resumed    bool
	Remoteness Remoteness
}
