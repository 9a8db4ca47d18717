package postgresql

import (
	"context"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
)

type taskRepository struct {
	db *database.DB
}

// ListActiveForEmployee implements shift.TaskRepository.
func (r *taskRepository) ListActiveForEmployee(ctx context.Context, shopID string, employeeID string) ([]shift.Task, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, shop_id, name, assigned_to, active, sort_order
		FROM tasks
		WHERE shop_id = $1
		  AND active
		  AND (assigned_to IS NULL OR assigned_to = $2)
		ORDER BY sort_order, name, id
	`

	rows, err := q.Query(ctx, query, shopID, employeeID)
	if err != nil {
		return nil, database.NewStoreError("list tasks", err)
	}
	defer rows.Close()

	var tasks []shift.Task
	for rows.Next() {
		var t shift.Task
		if err := rows.Scan(&t.ID, &t.ShopID, &t.Name, &t.AssignedTo, &t.Active, &t.SortOrder); err != nil {
			return nil, database.NewStoreError("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStoreError("list tasks", err)
	}

	return tasks, nil
}

func NewTaskRepository(db *database.DB) shift.TaskRepository {
	return &taskRepository{db: db}
}
