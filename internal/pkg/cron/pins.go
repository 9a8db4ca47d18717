package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
)

const JobFlagExpiredPins = "flag_expired_pins"

// PinJobs keeps pin_change_required in step with pin_expires_at so that
// directory reads agree with the lifecycle check the engine performs.
type PinJobs struct {
	employeeRepo employee.EmployeeRepository
	now          func() time.Time
}

func NewPinJobs(employeeRepo employee.EmployeeRepository, now func() time.Time) *PinJobs {
	if now == nil {
		now = time.Now
	}
	return &PinJobs{employeeRepo: employeeRepo, now: now}
}

func (j *PinJobs) RegisterJobs(scheduler *Scheduler, spec string) error {
	return scheduler.AddJob(JobFlagExpiredPins, spec, func(ctx context.Context) error {
		_, err := j.FlagExpiredPins(ctx)
		return err
	})
}

func (j *PinJobs) FlagExpiredPins(ctx context.Context) (int64, error) {
	flagged, err := j.employeeRepo.FlagExpiredPins(ctx, j.now())
	if err != nil {
		return 0, fmt.Errorf("flag expired pins: %w", err)
	}
	if flagged > 0 {
		metrics.PinsFlagged.Add(float64(flagged))
		slog.Info("Cron: flagged employees for PIN change", "count", flagged)
	}
	return flagged, nil
}
