package postgresql

import (
	"context"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
)

type remoteApprovalRepository struct {
	db *database.DB
}

// ListActiveByEmployee implements shift.RemoteApprovalRepository.
func (r *remoteApprovalRepository) ListActiveByEmployee(ctx context.Context, employeeID string, shopID string) ([]shift.RemoteApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, shop_id, weekdays, start_date, end_date, active, notes
		FROM remote_approvals
		WHERE employee_id = $1
		  AND shop_id = $2
		  AND active
		ORDER BY start_date
	`

	rows, err := q.Query(ctx, query, employeeID, shopID)
	if err != nil {
		return nil, database.NewStoreError("list remote approvals", err)
	}
	defer rows.Close()

	var approvals []shift.RemoteApproval
	for rows.Next() {
		var (
			a        shift.RemoteApproval
			weekdays []int16
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.ShopID, &weekdays, &a.StartDate, &a.EndDate, &a.Active, &a.Notes); err != nil {
			return nil, database.NewStoreError("scan remote approval", err)
		}
		a.Weekdays = make([]int, len(weekdays))
		for i, d := range weekdays {
			a.Weekdays[i] = int(d)
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStoreError("list remote approvals", err)
	}

	return approvals, nil
}

func NewRemoteApprovalRepository(db *database.DB) shift.RemoteApprovalRepository {
	return &remoteApprovalRepository{db: db}
}
