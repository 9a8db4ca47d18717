package shop

import (
	"context"
	"time"
)

type ShopRepository interface {
	GetByID(ctx context.Context, id string) (Shop, error)

	// GetByIDForUpdate locks the shop row; only the billing webhook uses it.
	GetByIDForUpdate(ctx context.Context, id string) (Shop, error)

	UpdatePlan(ctx context.Context, id string, tier PlanTier, gracePeriodEndsAt *time.Time) error
}
