package loyalty

import (
	"context"
)

// LoyaltyService is the Loyalty Ledger Engine. It is the only writer of
// customer balances and ledger rows.
type LoyaltyService interface {
	// LookupOrInitCustomer finds a customer by phone or reports that the phone is new.
	LookupOrInitCustomer(ctx context.Context, shopID string, phone string, program Program) (LookupResult, error)

	// RegisterCustomer creates a customer together with its first point.
	RegisterCustomer(ctx context.Context, req RegisterCustomerRequest, program Program) (CustomerView, error)

	AwardPoint(ctx context.Context, req PointRequest, program Program) (CustomerView, error)

	RedeemReward(ctx context.Context, req PointRequest, program Program) (CustomerView, error)

	// GetBalance is the read-only self-service lookup.
	GetBalance(ctx context.Context, shopID string, phone string, program Program) (CustomerView, error)

	ListTransactions(ctx context.Context, shopID string, customerID string) ([]Transaction, error)

	AuditCustomer(ctx context.Context, shopID string, customerID string) (*Discrepancy, error)
	AuditShop(ctx context.Context, shopID string) (AuditReport, error)
}
