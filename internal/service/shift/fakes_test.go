package shift

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the employee and clock record tables.
// The transactor holds txMu for the whole unit, which plays the role of the
// row locks, and restores a snapshot when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	employees map[string]employee.Employee
	sessions  map[string]shift.ShiftSession
	tasks     []shift.Task
	approvals []shift.RemoteApproval

	createCalls int
}

func newMemStore() *memStore {
	return &memStore{
		employees: map[string]employee.Employee{},
		sessions:  map[string]shift.ShiftSession{},
	}
}

func (m *memStore) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	employees := make(map[string]employee.Employee, len(m.employees))
	for k, v := range m.employees {
		employees[k] = v
	}
	sessions := make(map[string]shift.ShiftSession, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = cloneSession(v)
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.employees = employees
		m.sessions = sessions
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneSession(s shift.ShiftSession) shift.ShiftSession {
	s.TasksAssigned = append([]shift.TaskSnapshot(nil), s.TasksAssigned...)
	return s
}

// employee.EmployeeRepository

func (m *memStore) ListByShop(ctx context.Context, shopID string) ([]employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []employee.Employee
	for _, e := range m.employees {
		if e.ShopID == shopID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string, shopID string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok || e.ShopID != shopID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *memStore) GetByIDForUpdate(ctx context.Context, id string, shopID string) (employee.Employee, error) {
	return m.GetByID(ctx, id, shopID)
}

func (m *memStore) UpdatePin(ctx context.Context, id string, shopID string, pinHash string, setAt time.Time, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok || e.ShopID != shopID {
		return employee.ErrEmployeeNotFound
	}
	e.PinHash = pinHash
	e.PinSetAt = &setAt
	e.PinExpiresAt = &expiresAt
	e.PinChangeRequired = false
	m.employees[id] = e
	return nil
}

func (m *memStore) FlagExpiredPins(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.employees {
		if e.Active && !e.PinChangeRequired && e.PinExpired(now) {
			e.PinChangeRequired = true
			m.employees[id] = e
			n++
		}
	}
	return n, nil
}

// sessionRepo adapts memStore to shift.SessionRepository, whose method names
// overlap with the employee repository.
type sessionRepo struct{ *memStore }

func (r sessionRepo) Create(ctx context.Context, session shift.ShiftSession) (shift.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	for _, s := range r.sessions {
		if s.EmployeeID == session.EmployeeID && s.IsOpen() {
			return shift.ShiftSession{}, shift.ErrSessionAlreadyOpen
		}
	}
	session.ID = uuid.NewString()
	session.CreatedAt = session.ClockInTime
	session.UpdatedAt = session.ClockInTime
	r.sessions[session.ID] = cloneSession(session)
	return session, nil
}

func (r sessionRepo) GetOpenByEmployee(ctx context.Context, employeeID string, shopID string) (shift.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.EmployeeID == employeeID && s.ShopID == shopID && s.IsOpen() {
			return cloneSession(s), nil
		}
	}
	return shift.ShiftSession{}, shift.ErrSessionNotFound
}

func (r sessionRepo) GetByIDForUpdate(ctx context.Context, id string, shopID string) (shift.ShiftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.ShopID != shopID {
		return shift.ShiftSession{}, shift.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r sessionRepo) UpdateTasks(ctx context.Context, id string, shopID string, tasks []shift.TaskSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.ShopID != shopID || !s.IsOpen() {
		return shift.ErrSessionNotFound
	}
	s.TasksAssigned = append([]shift.TaskSnapshot(nil), tasks...)
	r.sessions[id] = s
	return nil
}

func (r sessionRepo) Close(ctx context.Context, id string, shopID string, clockOut time.Time, hoursWorked decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.ShopID != shopID || !s.IsOpen() {
		return shift.ErrSessionNotFound
	}
	s.ClockOutTime = &clockOut
	s.HoursWorked = &hoursWorked
	r.sessions[id] = s
	return nil
}

func (r sessionRepo) CountOpenByEmployee(ctx context.Context, employeeID string, shopID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.EmployeeID == employeeID && s.ShopID == shopID && s.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListActiveForEmployee(ctx context.Context, shopID string, employeeID string) ([]shift.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shift.Task
	for _, t := range m.tasks {
		if t.ShopID != shopID || !t.Active {
			continue
		}
		if t.AssignedTo == nil || *t.AssignedTo == employeeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveByEmployee(ctx context.Context, employeeID string, shopID string) ([]shift.RemoteApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shift.RemoteApproval
	for _, a := range m.approvals {
		if a.EmployeeID == employeeID && a.ShopID == shopID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
