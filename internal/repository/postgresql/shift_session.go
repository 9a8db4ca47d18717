package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type shiftSessionRepository struct {
	db *database.DB
}

const sessionColumns = `
	id, employee_id, shop_id, clock_in_time, clock_out_time, tasks_assigned,
	hours_worked::text, clock_in_latitude, clock_in_longitude, created_at, updated_at
`

func scanSession(row pgx.Row) (shift.ShiftSession, error) {
	var (
		s     shift.ShiftSession
		tasks []byte
		hours *string
	)
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.ShopID, &s.ClockInTime, &s.ClockOutTime, &tasks,
		&hours, &s.ClockInLatitude, &s.ClockInLongitude, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return shift.ShiftSession{}, err
	}

	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &s.TasksAssigned); err != nil {
			return shift.ShiftSession{}, fmt.Errorf("decode tasks_assigned: %w", err)
		}
	}
	if hours != nil {
		d, err := decimal.NewFromString(*hours)
		if err != nil {
			return shift.ShiftSession{}, fmt.Errorf("decode hours_worked: %w", err)
		}
		s.HoursWorked = &d
	}

	return s, nil
}

// Create implements shift.SessionRepository.
func (r *shiftSessionRepository) Create(ctx context.Context, session shift.ShiftSession) (shift.ShiftSession, error) {
	q := GetQuerier(ctx, r.db)

	tasks, err := json.Marshal(session.TasksAssigned)
	if err != nil {
		return shift.ShiftSession{}, fmt.Errorf("encode tasks_assigned: %w", err)
	}
	if session.TasksAssigned == nil {
		tasks = []byte("[]")
	}

	query := `
		INSERT INTO shift_sessions (
			employee_id, shop_id, clock_in_time, tasks_assigned, clock_in_latitude, clock_in_longitude
		) VALUES ($1, $2, $3, $4::text::jsonb, $5, $6)
		ON CONFLICT (employee_id) WHERE clock_out_time IS NULL DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		session.EmployeeID,
		session.ShopID,
		session.ClockInTime,
		string(tasks),
		session.ClockInLatitude,
		session.ClockInLongitude,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if isNoRows(err) || isUniqueViolation(err) {
			return shift.ShiftSession{}, shift.ErrSessionAlreadyOpen
		}
		return shift.ShiftSession{}, database.NewStoreError("create shift session", err)
	}

	return session, nil
}

// GetOpenByEmployee implements shift.SessionRepository.
func (r *shiftSessionRepository) GetOpenByEmployee(ctx context.Context, employeeID string, shopID string) (shift.ShiftSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM shift_sessions
		WHERE employee_id = $1
		  AND shop_id = $2
		  AND clock_out_time IS NULL
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, employeeID, shopID))
	if err != nil {
		if isNoRows(err) {
			return shift.ShiftSession{}, shift.ErrSessionNotFound
		}
		return shift.ShiftSession{}, database.NewStoreError("get open shift session", err)
	}
	return s, nil
}

// GetByIDForUpdate implements shift.SessionRepository.
func (r *shiftSessionRepository) GetByIDForUpdate(ctx context.Context, id string, shopID string) (shift.ShiftSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM shift_sessions
		WHERE id = $1
		  AND shop_id = $2
		FOR UPDATE
	`

	s, err := scanSession(q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		if isNoRows(err) {
			return shift.ShiftSession{}, shift.ErrSessionNotFound
		}
		return shift.ShiftSession{}, database.NewStoreError("lock shift session", err)
	}
	return s, nil
}

// UpdateTasks implements shift.SessionRepository.
func (r *shiftSessionRepository) UpdateTasks(ctx context.Context, id string, shopID string, tasks []shift.TaskSnapshot) error {
	q := GetQuerier(ctx, r.db)

	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks_assigned: %w", err)
	}

	query := `
		UPDATE shift_sessions
		SET tasks_assigned = $3::text::jsonb,
			updated_at = NOW()
		WHERE id = $1 AND shop_id = $2 AND clock_out_time IS NULL
	`

	cmd, err := q.Exec(ctx, query, id, shopID, string(payload))
	if err != nil {
		return database.NewStoreError("update shift tasks", err)
	}
	if cmd.RowsAffected() == 0 {
		return shift.ErrSessionNotFound
	}
	return nil
}

// Close implements shift.SessionRepository.
func (r *shiftSessionRepository) Close(ctx context.Context, id string, shopID string, clockOut time.Time, hoursWorked decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shift_sessions
		SET clock_out_time = $3,
			hours_worked = $4::text::numeric,
			updated_at = NOW()
		WHERE id = $1 AND shop_id = $2 AND clock_out_time IS NULL
	`

	cmd, err := q.Exec(ctx, query, id, shopID, clockOut, hoursWorked.StringFixed(2))
	if err != nil {
		return database.NewStoreError("close shift session", err)
	}
	if cmd.RowsAffected() == 0 {
		return shift.ErrSessionNotFound
	}
	return nil
}

// CountOpenByEmployee implements shift.SessionRepository.
func (r *shiftSessionRepository) CountOpenByEmployee(ctx context.Context, employeeID string, shopID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM shift_sessions WHERE employee_id = $1 AND shop_id = $2 AND clock_out_time IS NULL`,
		employeeID, shopID,
	).Scan(&count)
	if err != nil {
		return 0, database.NewStoreError("count open shift sessions", err)
	}
	return count, nil
}

func NewShiftSessionRepository(db *database.DB) shift.SessionRepository {
	return &shiftSessionRepository{db: db}
}
