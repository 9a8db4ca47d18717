package postgresql

import (
	"context"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type customerRepository struct {
	db *database.DB
}

const customerColumns = `
	id, shop_id, phone, name, current_points, total_visits, rewards_redeemed,
	last_visit_at, created_at, updated_at
`

func scanCustomer(row pgx.Row) (loyalty.Customer, error) {
	var c loyalty.Customer
	err := row.Scan(
		&c.ID, &c.ShopID, &c.Phone, &c.Name, &c.CurrentPoints, &c.TotalVisits, &c.RewardsRedeemed,
		&c.LastVisitAt, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *customerRepository) get(ctx context.Context, op string, query string, args ...interface{}) (loyalty.Customer, error) {
	q := GetQuerier(ctx, r.db)

	c, err := scanCustomer(q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return loyalty.Customer{}, loyalty.ErrCustomerNotFound
		}
		return loyalty.Customer{}, database.NewStoreError(op, err)
	}
	return c, nil
}

// GetByPhone implements loyalty.CustomerRepository.
func (r *customerRepository) GetByPhone(ctx context.Context, shopID string, phone string) (loyalty.Customer, error) {
	return r.get(ctx, "get customer by phone",
		`SELECT `+customerColumns+` FROM customers WHERE shop_id = $1 AND phone = $2`, shopID, phone)
}

// GetByID implements loyalty.CustomerRepository.
func (r *customerRepository) GetByID(ctx context.Context, id string, shopID string) (loyalty.Customer, error) {
	return r.get(ctx, "get customer",
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND shop_id = $2`, id, shopID)
}

// GetByIDForUpdate implements loyalty.CustomerRepository.
func (r *customerRepository) GetByIDForUpdate(ctx context.Context, id string, shopID string) (loyalty.Customer, error) {
	return r.get(ctx, "lock customer",
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND shop_id = $2 FOR UPDATE`, id, shopID)
}

// Create implements loyalty.CustomerRepository.
func (r *customerRepository) Create(ctx context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO customers (
			shop_id, phone, name, current_points, total_visits, rewards_redeemed, last_visit_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shop_id, phone) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		customer.ShopID,
		customer.Phone,
		customer.Name,
		customer.CurrentPoints,
		customer.TotalVisits,
		customer.RewardsRedeemed,
		customer.LastVisitAt,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if isNoRows(err) || isUniqueViolation(err) {
			return loyalty.Customer{}, loyalty.ErrCustomerExists
		}
		return loyalty.Customer{}, database.NewStoreError("create customer", err)
	}

	return customer, nil
}

// UpdateBalance implements loyalty.CustomerRepository.
func (r *customerRepository) UpdateBalance(ctx context.Context, customer loyalty.Customer) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE customers
		SET current_points = $3,
			total_visits = $4,
			rewards_redeemed = $5,
			last_visit_at = $6,
			updated_at = NOW()
		WHERE id = $1 AND shop_id = $2
	`

	cmd, err := q.Exec(ctx, query,
		customer.ID,
		customer.ShopID,
		customer.CurrentPoints,
		customer.TotalVisits,
		customer.RewardsRedeemed,
		customer.LastVisitAt,
	)
	if err != nil {
		return database.NewStoreError("update customer balance", err)
	}
	if cmd.RowsAffected() == 0 {
		return loyalty.ErrCustomerNotFound
	}
	return nil
}

// ListByShop implements loyalty.CustomerRepository.
func (r *customerRepository) ListByShop(ctx context.Context, shopID string) ([]loyalty.Customer, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE shop_id = $1 ORDER BY created_at, id`, shopID)
	if err != nil {
		return nil, database.NewStoreError("list customers", err)
	}
	defer rows.Close()

	var customers []loyalty.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, database.NewStoreError("scan customer", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStoreError("list customers", err)
	}

	return customers, nil
}

func NewCustomerRepository(db *database.DB) loyalty.CustomerRepository {
	return &customerRepository{db: db}
}
