package loyalty

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
)

type RegisterCustomerRequest struct {
	ShopID  string  `json:"-"`
	StaffID *string `json:"-"`
	Phone   string  `json:"phone"`
	Name    *string `json:"name,omitempty"`
}

func (r *RegisterCustomerRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidPhoneNumber(validator.NormalizePhone(r.Phone)) {
		errs = append(errs, validator.ValidationError{
			Field:   "phone",
			Message: ErrInvalidPhone.Error(),
		})
	}

	if r.Name != nil && len(strings.TrimSpace(*r.Name)) > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not exceed 100 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// PointRequest addresses one customer for an award or a redemption.
type PointRequest struct {
	ShopID     string
	CustomerID string
	StaffID    *string
}

type TransactionResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	PointsChange int       `json:"points_change"`
	BalanceAfter int       `json:"balance_after"`
	StaffID      *string   `json:"staff_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewTransactionResponse(tx Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           tx.ID,
		Type:         string(tx.Type),
		PointsChange: tx.PointsChange,
		BalanceAfter: tx.BalanceAfter,
		StaffID:      tx.StaffID,
		CreatedAt:    tx.CreatedAt,
	}
}

type ListTransactionResponse struct {
	CustomerID   string                `json:"customer_id"`
	Transactions []TransactionResponse `json:"transactions"`
}

// BalanceResponse is what the public self-service screen may show: no
// identifiers, only the reward state for the phone that was typed in.
type BalanceResponse struct {
	CurrentPoints      int    `json:"current_points"`
	RewardPointsNeeded int    `json:"reward_points_needed"`
	RewardDescription  string `json:"reward_description"`
	RewardReady        bool   `json:"reward_ready"`
	PointsToReward     int    `json:"points_to_reward"`
}

func NewBalanceResponse(v CustomerView) BalanceResponse {
	return BalanceResponse{
		CurrentPoints:      v.CurrentPoints,
		RewardPointsNeeded: v.RewardPointsNeeded,
		RewardDescription:  v.RewardDescription,
		RewardReady:        v.RewardReady,
		PointsToReward:     v.PointsToReward,
	}
}
