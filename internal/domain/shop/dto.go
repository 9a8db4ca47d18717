package shop

import (
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
)

type BillingEventType string

const (
	BillingEventPaymentSucceeded BillingEventType = "payment.succeeded"
	BillingEventPaymentFailed    BillingEventType = "payment.failed"
)

// BillingEvent is the payload of the billing webhook.
type BillingEvent struct {
	ID       string           `json:"id"`
	Event    BillingEventType `json:"event"`
	ShopID   string           `json:"shop_id"`
	PlanTier *string          `json:"plan_tier,omitempty"`
}

func (r *BillingEvent) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ShopID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shop_id",
			Message: "shop_id must be a valid UUID",
		})
	}

	if r.Event != BillingEventPaymentSucceeded && r.Event != BillingEventPaymentFailed {
		errs = append(errs, validator.ValidationError{
			Field:   "event",
			Message: "event must be payment.succeeded or payment.failed",
		})
	}

	if r.PlanTier != nil && !validator.IsInSlice(*r.PlanTier, []string{string(PlanTierFree), string(PlanTierPro)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "plan_tier",
			Message: "plan_tier must be free or pro",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ShopResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	PlanTier           string     `json:"plan_tier"`
	GracePeriodEndsAt  *time.Time `json:"grace_period_ends_at,omitempty"`
	RewardPointsNeeded int        `json:"reward_points_needed"`
	RewardDescription  string     `json:"reward_description"`
}

func NewShopResponse(s Shop) ShopResponse {
	return ShopResponse{
		ID:                 s.ID,
		Name:               s.Name,
		PlanTier:           string(s.PlanTier),
		GracePeriodEndsAt:  s.GracePeriodEndsAt,
		RewardPointsNeeded: s.RewardPointsNeeded,
		RewardDescription:  s.RewardDescription,
	}
}
