package shop

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
)

// DefaultGracePeriod is how long a shop keeps its plan after a failed payment.
const DefaultGracePeriod = 7 * 24 * time.Hour

type ShopServiceImpl struct {
	tx          database.Transactor
	shopRepo    shop.ShopRepository
	publisher   events.Publisher
	gracePeriod time.Duration
	now         func() time.Time
}

func NewShopService(
	tx database.Transactor,
	shopRepo shop.ShopRepository,
	publisher events.Publisher,
	gracePeriod time.Duration,
	now func() time.Time,
) shop.ShopService {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ShopServiceImpl{
		tx:          tx,
		shopRepo:    shopRepo,
		publisher:   publisher,
		gracePeriod: gracePeriod,
		now:         now,
	}
}

// GetShop implements shop.ShopService.
func (s *ShopServiceImpl) GetShop(ctx context.Context, id string) (shop.Shop, error) {
	return s.shopRepo.GetByID(ctx, id)
}

// HandleBillingEvent implements shop.ShopService.
func (s *ShopServiceImpl) HandleBillingEvent(ctx context.Context, event shop.BillingEvent) (shop.Shop, error) {
	if err := event.Validate(); err != nil {
		return shop.Shop{}, err
	}

	now := s.now()
	var (
		updated shop.Shop
		changed bool
	)

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.shopRepo.GetByIDForUpdate(txCtx, event.ShopID)
		if err != nil {
			return err
		}

		tier, grace := nextPlan(current, event, now, s.gracePeriod)
		if tier == current.PlanTier && equalTimes(grace, current.GracePeriodEndsAt) {
			updated = current
			return nil
		}

		if err := s.shopRepo.UpdatePlan(txCtx, current.ID, tier, grace); err != nil {
			return err
		}

		current.PlanTier = tier
		current.GracePeriodEndsAt = grace
		updated = current
		changed = true
		return nil
	})
	if err != nil {
		return shop.Shop{}, err
	}

	if changed {
		slog.Info("shop plan updated",
			"shop_id", updated.ID,
			"event", event.Event,
			"plan_tier", updated.PlanTier,
			"grace_period_ends_at", updated.GracePeriodEndsAt,
		)
		events.Emit(ctx, s.publisher, events.New(events.TypePlanChanged, updated.ID, now, map[string]any{
			"plan_tier":            updated.PlanTier,
			"grace_period_ends_at": updated.GracePeriodEndsAt,
			"billing_event":        event.Event,
		}))
	}

	return updated, nil
}

// nextPlan applies one billing event to the shop's plan fields.
//
// payment.succeeded sets the requested tier (pro by default) and ends any grace
// period. payment.failed opens a grace period on a paid plan and downgrades to
// free once that period has run out.
func nextPlan(current shop.Shop, event shop.BillingEvent, now time.Time, gracePeriod time.Duration) (shop.PlanTier, *time.Time) {
	switch event.Event {
	case shop.BillingEventPaymentSucceeded:
		tier := shop.PlanTierPro
		if event.PlanTier != nil {
			tier = shop.PlanTier(*event.PlanTier)
		}
		return tier, nil

	case shop.BillingEventPaymentFailed:
		if current.PlanTier == shop.PlanTierFree {
			return shop.PlanTierFree, nil
		}
		if current.GracePeriodEndsAt == nil {
			ends := now.Add(gracePeriod)
			return current.PlanTier, &ends
		}
		if current.InGracePeriod(now) {
			return current.PlanTier, current.GracePeriodEndsAt
		}
		return shop.PlanTierFree, nil
	}

	return current.PlanTier, current.GracePeriodEndsAt
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
