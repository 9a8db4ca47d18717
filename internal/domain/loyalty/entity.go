package loyalty

import (
	"math"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
)

// DefaultCooldown is the minimum gap between two ledger entries of one customer.
const DefaultCooldown = 30 * time.Minute

type TransactionType string

const (
	TransactionTypePointAdded     TransactionType = "point_added"
	TransactionTypeRewardRedeemed TransactionType = "reward_redeemed"
)

type Customer struct {
	ID              string
	ShopID          string
	Phone           string
	Name            *string
	CurrentPoints   int
	TotalVisits     int
	RewardsRedeemed int
	LastVisitAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transaction is one append-only ledger row.
type Transaction struct {
	ID           string
	CustomerID   string
	ShopID       string
	Type         TransactionType
	PointsChange int
	BalanceAfter int
	StaffID      *string
	CreatedAt    time.Time
}

// Program carries the shop's reward settings into each engine call.
type Program struct {
	RewardPointsNeeded int
	RewardDescription  string
	Cooldown           time.Duration
}

// NewProgram builds the loyalty program from shop settings.
func NewProgram(s shop.Shop, cooldown time.Duration) Program {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return Program{
		RewardPointsNeeded: s.RewardPointsNeeded,
		RewardDescription:  s.RewardDescription,
		Cooldown:           cooldown,
	}
}

// CustomerView is a customer with the derived reward state. RewardReady is
// computed on every read and never stored.
type CustomerView struct {
	ID                 string     `json:"id"`
	Phone              string     `json:"phone"`
	Name               *string    `json:"name,omitempty"`
	CurrentPoints      int        `json:"current_points"`
	TotalVisits        int        `json:"total_visits"`
	RewardsRedeemed    int        `json:"rewards_redeemed"`
	LastVisitAt        *time.Time `json:"last_visit_at,omitempty"`
	RewardPointsNeeded int        `json:"reward_points_needed"`
	RewardDescription  string     `json:"reward_description"`
	RewardReady        bool       `json:"reward_ready"`
	PointsToReward     int        `json:"points_to_reward"`
}

func NewCustomerView(c Customer, p Program) CustomerView {
	toReward := p.RewardPointsNeeded - c.CurrentPoints
	if toReward < 0 {
		toReward = 0
	}
	return CustomerView{
		ID:                 c.ID,
		Phone:              c.Phone,
		Name:               c.Name,
		CurrentPoints:      c.CurrentPoints,
		TotalVisits:        c.TotalVisits,
		RewardsRedeemed:    c.RewardsRedeemed,
		LastVisitAt:        c.LastVisitAt,
		RewardPointsNeeded: p.RewardPointsNeeded,
		RewardDescription:  p.RewardDescription,
		RewardReady:        c.CurrentPoints >= p.RewardPointsNeeded,
		PointsToReward:     toReward,
	}
}

// LookupResult is either an existing customer or a marker that the phone is new.
type LookupResult struct {
	Existing *CustomerView `json:"customer,omitempty"`
	New      bool          `json:"new"`
	Phone    string        `json:"phone"`
}

// CooldownRemaining returns the whole minutes left before another entry is
// allowed, rounded up. ok is false once the cooldown has passed.
func CooldownRemaining(last time.Time, now time.Time, cooldown time.Duration) (minutes int, ok bool) {
	elapsed := now.Sub(last)
	if elapsed >= cooldown {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return int(math.Ceil((cooldown - elapsed).Minutes())), true
}

// Discrepancy describes a customer whose balance does not match its ledger.
type Discrepancy struct {
	CustomerID    string `json:"customer_id"`
	Phone         string `json:"phone"`
	CurrentPoints int    `json:"current_points"`
	LedgerSum     int    `json:"ledger_sum"`
	// BrokenAt is the first transaction whose balance_after does not follow from its predecessor.
	BrokenAt *string `json:"broken_at,omitempty"`
}

type AuditReport struct {
	ShopID           string        `json:"shop_id"`
	CustomersChecked int           `json:"customers_checked"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
}

// ReplayLedger checks txs (oldest first) against the customer's stored balance.
// It returns nil when both the sum and the balance_after chain are consistent.
func ReplayLedger(c Customer, txs []Transaction) *Discrepancy {
	var (
		sum      int
		brokenAt *string
	)
	for i, tx := range txs {
		sum += tx.PointsChange
		if brokenAt == nil && tx.BalanceAfter != sum {
			id := txs[i].ID
			brokenAt = &id
		}
	}

	if sum == c.CurrentPoints && brokenAt == nil {
		return nil
	}
	return &Discrepancy{
		CustomerID:    c.ID,
		Phone:         c.Phone,
		CurrentPoints: c.CurrentPoints,
		LedgerSum:     sum,
		BrokenAt:      brokenAt,
	}
}
