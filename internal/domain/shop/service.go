package shop

import (
	"context"
)

// ShopService exposes shop settings to the device controllers and consumes
// the two billing webhook events.
type ShopService interface {
	GetShop(ctx context.Context, id string) (Shop, error)

	// HandleBillingEvent flips the plan tier or opens a grace period.
	HandleBillingEvent(ctx context.Context, event BillingEvent) (Shop, error)
}
