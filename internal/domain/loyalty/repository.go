package loyalty

import (
	"context"
)

// CustomerRepository is the customer half of the Customer Ledger Store.
type CustomerRepository interface {
	GetByPhone(ctx context.Context, shopID string, phone string) (Customer, error)
	GetByID(ctx context.Context, id string, shopID string) (Customer, error)

	// GetByIDForUpdate locks the customer row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string, shopID string) (Customer, error)

	// Create returns ErrCustomerExists when (shop_id, phone) is already taken.
	Create(ctx context.Context, customer Customer) (Customer, error)

	// UpdateBalance writes the counters and last_visit_at of customer.
	UpdateBalance(ctx context.Context, customer Customer) error

	ListByShop(ctx context.Context, shopID string) ([]Customer, error)
}

// TransactionRepository is the append-only ledger. There is no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction) (Transaction, error)

	// LastForCustomer returns nil when the customer has no ledger rows.
	LastForCustomer(ctx context.Context, customerID string, shopID string) (*Transaction, error)

	// ListByCustomer returns the ledger oldest first.
	ListByCustomer(ctx context.Context, customerID string, shopID string) ([]Transaction, error)
}
