package postgresql

import (
	"context"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepository struct {
	db *database.DB
}

const employeeColumns = `
	id, shop_id, display_name, pin_hash, pin_set_at, pin_expires_at,
	pin_change_required, active, created_at, updated_at
`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.ShopID, &e.DisplayName, &e.PinHash, &e.PinSetAt, &e.PinExpiresAt,
		&e.PinChangeRequired, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// ListByShop implements employee.EmployeeRepository.
func (r *employeeRepository) ListByShop(ctx context.Context, shopID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE shop_id = $1 ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, shopID)
	if err != nil {
		return nil, database.NewStoreError("list employees", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, database.NewStoreError("scan employee", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStoreError("list employees", err)
	}

	return employees, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string, shopID string) (employee.Employee, error) {
	return r.get(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND shop_id = $2`, id, shopID)
}

// GetByIDForUpdate implements employee.EmployeeRepository.
func (r *employeeRepository) GetByIDForUpdate(ctx context.Context, id string, shopID string) (employee.Employee, error) {
	return r.get(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND shop_id = $2 FOR UPDATE`, id, shopID)
}

func (r *employeeRepository) get(ctx context.Context, query string, id string, shopID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEmployee(q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		if isNoRows(err) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, database.NewStoreError("get employee", err)
	}
	return e, nil
}

// UpdatePin implements employee.EmployeeRepository.
func (r *employeeRepository) UpdatePin(ctx context.Context, id string, shopID string, pinHash string, setAt time.Time, expiresAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET pin_hash = $3,
			pin_set_at = $4,
			pin_expires_at = $5,
			pin_change_required = FALSE,
			updated_at = NOW()
		WHERE id = $1 AND shop_id = $2
	`

	cmd, err := q.Exec(ctx, query, id, shopID, pinHash, setAt, expiresAt)
	if err != nil {
		return database.NewStoreError("update employee pin", err)
	}
	if cmd.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FlagExpiredPins implements employee.EmployeeRepository.
func (r *employeeRepository) FlagExpiredPins(ctx context.Context, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET pin_change_required = TRUE,
			updated_at = NOW()
		WHERE active
		  AND NOT pin_change_required
		  AND (pin_expires_at IS NULL OR pin_expires_at <= $1)
	`

	cmd, err := q.Exec(ctx, query, now)
	if err != nil {
		return 0, database.NewStoreError("flag expired pins", err)
	}
	return cmd.RowsAffected(), nil
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}
