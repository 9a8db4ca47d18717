package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoursWorked(t *testing.T) {
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "8.00", HoursWorked(in, in.Add(8*time.Hour)).StringFixed(2))
	assert.Equal(t, "0.25", HoursWorked(in, in.Add(15*time.Minute)).StringFixed(2))
	assert.Equal(t, "1.33", HoursWorked(in, in.Add(80*time.Minute)).StringFixed(2))
	assert.Equal(t, "0.01", HoursWorked(in, in.Add(30*time.Second)).StringFixed(2))
}

func TestShiftSession_ToggleTask(t *testing.T) {
	s := ShiftSession{TasksAssigned: []TaskSnapshot{
		{TaskID: "t1", Name: "Open till"},
		{TaskID: "t2", Name: "Clean machine"},
	}}

	assert.Equal(t, []string{"Open till", "Clean machine"}, s.IncompleteTasks())

	require.NoError(t, s.ToggleTask("t2"))
	assert.Equal(t, []string{"Open till"}, s.IncompleteTasks())

	require.NoError(t, s.ToggleTask("t2"))
	assert.False(t, s.TasksAssigned[1].Completed)

	assert.ErrorIs(t, s.ToggleTask("missing"), ErrTaskNotFound)
}

func TestRemoteApproval_IsValidAt(t *testing.T) {
	approval := RemoteApproval{
		Weekdays:  []int{1, 3}, // Monday, Wednesday
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Active:    true,
	}

	monday := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)
	lastDay := time.Date(2026, 3, 30, 23, 59, 0, 0, time.UTC) // Monday
	afterEnd := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)   // Monday

	assert.True(t, approval.IsValidAt(monday))
	assert.False(t, approval.IsValidAt(tuesday))
	assert.True(t, approval.IsValidAt(lastDay))
	assert.False(t, approval.IsValidAt(afterEnd))

	approval.Active = false
	assert.False(t, approval.IsValidAt(monday))
}

func TestRemoteApproval_IsValidAt_ShopTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	approval := RemoteApproval{
		Weekdays:  []int{2}, // Tuesday
		StartDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Active:    true,
	}

	// Monday 20:00 UTC is Tuesday 05:00 in the shop.
	instant := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	assert.False(t, approval.IsValidAt(instant))
	assert.True(t, approval.IsValidAt(instant.In(loc)))
}

func TestTasksIncompleteError(t *testing.T) {
	var err error = &TasksIncompleteError{TaskNames: []string{"Open till", "Clean machine"}}

	assert.ErrorIs(t, err, ErrTasksIncomplete)
	assert.Contains(t, err.Error(), "Open till, Clean machine")
}

func TestHoursWorked_ClockSkew(t *testing.T) {
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "0.00", HoursWorked(in, in.Add(-time.Minute)).StringFixed(2))
}
