package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/service/geofence"
)

const engine = "shift"

// Options are the engine settings that are not per shop.
type Options struct {
	// EnforceGeofence rejects remote clock-ins that no approval covers.
	EnforceGeofence bool
	PinHashCost     int
	Now             func() time.Time
}

type ShiftServiceImpl struct {
	tx database.Transactor
	employee.EmployeeRepository
	shift.SessionRepository
	shift.TaskRepository
	geofence  *geofence.Evaluator
	publisher events.Publisher

	enforceGeofence bool
	pinHashCost     int
	now             func() time.Time
}

// VerifyPin implements shift.ShiftService.
func (s *ShiftServiceImpl) VerifyPin(ctx context.Context, req shift.VerifyPinRequest) (_ employee.Employee, err error) {
	defer metrics.Observe(engine, "verify_pin", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return employee.Employee{}, err
	}

	employees, err := s.EmployeeRepository.ListByShop(ctx, req.ShopID)
	if err != nil {
		return employee.Employee{}, fmt.Errorf("failed to list employees: %w", err)
	}

	// No early exit: every hash is compared.
	var matched *employee.Employee
	for i := range employees {
		if !pinMatches(employees[i].PinHash, req.Pin) {
			continue
		}
		if matched == nil || (!matched.Active && employees[i].Active) {
			matched = &employees[i]
		}
	}

	if matched == nil {
		metrics.PinAttempts.WithLabelValues("invalid").Inc()
		slog.Info("PIN verification failed", "shop_id", req.ShopID)
		return employee.Employee{}, shift.ErrInvalidCredential
	}
	if !matched.Active {
		metrics.PinAttempts.WithLabelValues("inactive").Inc()
		return employee.Employee{}, shift.ErrEmployeeInactive
	}

	metrics.PinAttempts.WithLabelValues("ok").Inc()
	return *matched, nil
}

// CheckPinLifecycle implements shift.ShiftService.
func (s *ShiftServiceImpl) CheckPinLifecycle(emp employee.Employee) shift.PinLifecycle {
	now := s.now()
	return shift.PinLifecycle{
		MustChangePin: emp.MustChangePin(now),
		Expired:       emp.PinExpired(now),
		ExpiresAt:     emp.PinExpiresAt,
	}
}

// ChangePin implements shift.ShiftService.
func (s *ShiftServiceImpl) ChangePin(ctx context.Context, req shift.ChangePinRequest) (_ employee.Employee, err error) {
	defer metrics.Observe(engine, "change_pin", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return employee.Employee{}, err
	}

	hash, err := hashPin(req.NewPin, s.pinHashCost)
	if err != nil {
		return employee.Employee{}, err
	}

	now := s.now()
	var updated employee.Employee

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		emp, err := s.EmployeeRepository.GetByIDForUpdate(txCtx, req.EmployeeID, req.ShopID)
		if err != nil {
			return err
		}
		if !emp.Active {
			return shift.ErrEmployeeInactive
		}

		if pinMatches(emp.PinHash, req.NewPin) {
			return newPinError("new_pin must differ from the current PIN")
		}

		colleagues, err := s.EmployeeRepository.ListByShop(txCtx, req.ShopID)
		if err != nil {
			return fmt.Errorf("failed to list employees: %w", err)
		}
		inUse := false
		for _, other := range colleagues {
			if other.ID == emp.ID || !other.Active {
				continue
			}
			if pinMatches(other.PinHash, req.NewPin) {
				inUse = true
			}
		}
		if inUse {
			return shift.ErrPinInUse
		}

		expiresAt := now.Add(employee.PinLifetime)
		if err := s.EmployeeRepository.UpdatePin(txCtx, emp.ID, req.ShopID, hash, now, expiresAt); err != nil {
			return fmt.Errorf("failed to update PIN: %w", err)
		}

		emp.PinHash = hash
		emp.PinSetAt = &now
		emp.PinExpiresAt = &expiresAt
		emp.PinChangeRequired = false
		updated = emp
		return nil
	})
	if err != nil {
		return employee.Employee{}, err
	}

	slog.Info("PIN changed", "employee_id", updated.ID, "shop_id", updated.ShopID, "expires_at", updated.PinExpiresAt)
	return updated, nil
}

// OpenOrResumeSession implements shift.ShiftService.
func (s *ShiftServiceImpl) OpenOrResumeSession(ctx context.Context, req shift.OpenSessionRequest, site shop.Shop) (_ shift.SessionResult, err error) {
	defer metrics.Observe(engine, "open_or_resume", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return shift.SessionResult{}, err
	}
	if site.ID != req.ShopID {
		return shift.SessionResult{}, shop.ErrShopNotFound
	}

	now := s.now()
	var result shift.SessionResult

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Serializes concurrent opens for the same employee.
		emp, err := s.EmployeeRepository.GetByIDForUpdate(txCtx, req.EmployeeID, req.ShopID)
		if err != nil {
			return err
		}
		if err := checkEmployee(emp, now); err != nil {
			return err
		}

		open, err := s.SessionRepository.GetOpenByEmployee(txCtx, emp.ID, req.ShopID)
		if err == nil {
			result = shift.SessionResult{Session: open, Resumed: true}
			return nil
		}
		if !errors.Is(err, shift.ErrSessionNotFound) {
			return fmt.Errorf("failed to get open session: %w", err)
		}

		lat, lon := req.Latitude, req.Longitude
		remoteness, err := s.geofence.Evaluate(txCtx, emp.ID, &lat, &lon, site, now)
		if err != nil {
			return err
		}
		if s.enforceGeofence && !remoteness.OnSite && !remoteness.PreApproved {
			return &shift.RemoteNotApprovedError{
				DistanceMeters: remoteness.DistanceMeters,
				RadiusMeters:   s.geofence.Radius(site),
			}
		}

		tasks, err := s.TaskRepository.ListActiveForEmployee(txCtx, req.ShopID, emp.ID)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		snapshot := make([]shift.TaskSnapshot, 0, len(tasks))
		for _, t := range tasks {
			snapshot = append(snapshot, shift.TaskSnapshot{TaskID: t.ID, Name: t.Name})
		}

		created, err := s.SessionRepository.Create(txCtx, shift.ShiftSession{
			EmployeeID:       emp.ID,
			ShopID:           req.ShopID,
			ClockInTime:      now,
			TasksAssigned:    snapshot,
			ClockInLatitude:  &lat,
			ClockInLongitude: &lon,
		})
		if errors.Is(err, shift.ErrSessionAlreadyOpen) {
			// Another device won the race; hand back its session.
			winner, err := s.SessionRepository.GetOpenByEmployee(txCtx, emp.ID, req.ShopID)
			if err != nil {
				return fmt.Errorf("failed to re-read open session: %w", err)
			}
			result = shift.SessionResult{Session: winner, Resumed: true}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		result = shift.SessionResult{Session: created, Remoteness: remoteness}
		return nil
	})
	if err != nil {
		return shift.SessionResult{}, err
	}

	if result.Resumed {
		result.Remoteness, err = s.EvaluateRemoteness(ctx, result.Session, site)
		if err != nil {
			return shift.SessionResult{}, err
		}
		return result, nil
	}

	slog.Info("shift session opened",
		"session_id", result.Session.ID,
		"employee_id", result.Session.EmployeeID,
		"shop_id", result.Session.ShopID,
		"tasks", len(result.Session.TasksAssigned),
		"on_site", result.Remoteness.OnSite,
	)

	events.Emit(ctx, s.publisher, events.New(events.TypeSessionOpened, site.ID, now, map[string]any{
		"session_id":  result.Session.ID,
		"employee_id": result.Session.EmployeeID,
	}))
	if !result.Remoteness.OnSite {
		events.Emit(ctx, s.publisher, events.New(events.TypeRemoteClockIn, site.ID, now, map[string]any{
			"session_id":      result.Session.ID,
			"employee_id":     result.Session.EmployeeID,
			"distance_meters": result.Remoteness.DistanceMeters,
			"pre_approved":    result.Remoteness.PreApproved,
		}))
	}

	return result, nil
}

// GetOpenSession implements shift.ShiftService.
func (s *ShiftServiceImpl) GetOpenSession(ctx context.Context, employeeID string, shopID string) (shift.ShiftSession, error) {
	return s.SessionRepository.GetOpenByEmployee(ctx, employeeID, shopID)
}

// ToggleTask implements shift.ShiftService.
func (s *ShiftServiceImpl) ToggleTask(ctx context.Context, req shift.TaskToggleRequest) (_ shift.ShiftSession, err error) {
	defer metrics.Observe(engine, "toggle_task", time.Now(), &err)

	now := s.now()
	var session shift.ShiftSession

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.lockOwnSession(txCtx, req.EmployeeID, req.ShopID, req.SessionID, now)
		if err != nil {
			return err
		}

		if err := locked.ToggleTask(req.TaskID); err != nil {
			return err
		}
		if err := s.SessionRepository.UpdateTasks(txCtx, locked.ID, req.ShopID, locked.TasksAssigned); err != nil {
			return fmt.Errorf("failed to update tasks: %w", err)
		}

		locked.UpdatedAt = now
		session = locked
		return nil
	})
	if err != nil {
		return shift.ShiftSession{}, err
	}

	return session, nil
}

// CloseSession implements shift.ShiftService.
func (s *ShiftServiceImpl) CloseSession(ctx context.Context, req shift.CloseSessionRequest) (_ shift.ShiftSession, err error) {
	defer metrics.Observe(engine, "close_session", time.Now(), &err)

	now := s.now()
	var session shift.ShiftSession

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.lockOwnSession(txCtx, req.EmployeeID, req.ShopID, req.SessionID, now)
		if err != nil {
			return err
		}

		if pending := locked.IncompleteTasks(); len(pending) > 0 {
			return &shift.TasksIncompleteError{TaskNames: pending}
		}

		hours := shift.HoursWorked(locked.ClockInTime, now)
		if err := s.SessionRepository.Close(txCtx, locked.ID, req.ShopID, now, hours); err != nil {
			return fmt.Errorf("failed to close session: %w", err)
		}

		locked.ClockOutTime = &now
		locked.HoursWorked = &hours
		locked.UpdatedAt = now
		session = locked
		return nil
	})
	if err != nil {
		return shift.ShiftSession{}, err
	}

	slog.Info("shift session closed",
		"session_id", session.ID,
		"employee_id", session.EmployeeID,
		"shop_id", session.ShopID,
		"hours_worked", session.HoursWorked.StringFixed(2),
	)
	events.Emit(ctx, s.publisher, events.New(events.TypeSessionClosed, session.ShopID, now, map[string]any{
		"session_id":   session.ID,
		"employee_id":  session.EmployeeID,
		"hours_worked": session.HoursWorked.StringFixed(2),
	}))

	return session, nil
}

// EvaluateRemoteness implements shift.ShiftService.
func (s *ShiftServiceImpl) EvaluateRemoteness(ctx context.Context, session shift.ShiftSession, site shop.Shop) (shift.Remoteness, error) {
	return s.geofence.Evaluate(ctx, session.EmployeeID, session.ClockInLatitude, session.ClockInLongitude, site, s.now())
}

// lockOwnSession locks sessionID and checks it is an open session of employeeID
// whose PIN is still usable.
func (s *ShiftServiceImpl) lockOwnSession(txCtx context.Context, employeeID, shopID, sessionID string, now time.Time) (shift.ShiftSession, error) {
	emp, err := s.EmployeeRepository.GetByID(txCtx, employeeID, shopID)
	if err != nil {
		return shift.ShiftSession{}, err
	}
	if err := checkEmployee(emp, now); err != nil {
		return shift.ShiftSession{}, err
	}

	session, err := s.SessionRepository.GetByIDForUpdate(txCtx, sessionID, shopID)
	if err != nil {
		return shift.ShiftSession{}, err
	}
	if session.EmployeeID != employeeID || !session.IsOpen() {
		return shift.ShiftSession{}, shift.ErrSessionNotFound
	}
	return session, nil
}

func checkEmployee(emp employee.Employee, now time.Time) error {
	if !emp.Active {
		return shift.ErrEmployeeInactive
	}
	if emp.MustChangePin(now) {
		return shift.ErrPinChangeRequired
	}
	return nil
}

func NewShiftService(
	tx database.Transactor,
	employeeRepository employee.EmployeeRepository,
	sessionRepository shift.SessionRepository,
	taskRepository shift.TaskRepository,
	evaluator *geofence.Evaluator,
	publisher events.Publisher,
	opts Options,
) shift.ShiftService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PinHashCost == 0 {
		opts.PinHashCost = DefaultPinHashCost
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ShiftServiceImpl{
		tx:                 tx,
		EmployeeRepository: employeeRepository,
		SessionRepository:  sessionRepository,
		TaskRepository:     taskRepository,
		geofence:           evaluator,
		publisher:          publisher,
		enforceGeofence:    opts.EnforceGeofence,
		pinHashCost:        opts.PinHashCost,
		now:                opts.Now,
	}
}
