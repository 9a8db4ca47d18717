package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	employee.EmployeeRepository // unused methods panic

	calledWith time.Time
	flagged    int64
	err        error
}

func (f *fakeDirectory) FlagExpiredPins(ctx context.Context, now time.Time) (int64, error) {
	f.calledWith = now
	return f.flagged, f.err
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	err := s.AddJob("broken", "not a spec", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunOnceRunsInOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	require.NoError(t, s.AddJob("a", "@every 1h", func(ctx context.Context) error {
		order = append(order, "a")
		return nil
	}))
	require.NoError(t, s.AddJob("b", "@daily", func(ctx context.Context) error {
		order = append(order, "b")
		return nil
	}))

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRunOnceReturnsFirstError(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")
	require.NoError(t, s.AddJob("a", "@every 1h", func(ctx context.Context) error { return boom }))

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPinJobs(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	dir := &fakeDirectory{flagged: 3}
	jobs := NewPinJobs(dir, func() time.Time { return now })

	s := NewScheduler()
	require.NoError(t, jobs.RegisterJobs(s, "@every 1h"))
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, now, dir.calledWith)

	dir.err = errors.New("db down")
	_, err := jobs.FlagExpiredPins(context.Background())
	assert.ErrorIs(t, err, dir.err)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.AddJob("noop", "@every 1h", func(ctx context.Context) error { return nil }))
	s.Start()
	s.Stop()
}
