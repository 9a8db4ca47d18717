package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
)

const engine = "loyalty"

type LoyaltyServiceImpl struct {
	tx database.Transactor
	loyalty.CustomerRepository
	loyalty.TransactionRepository
	publisher events.Publisher
	now       func() time.Time
}

// LookupOrInitCustomer implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) LookupOrInitCustomer(ctx context.Context, shopID string, phone string, program loyalty.Program) (loyalty.LookupResult, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return loyalty.LookupResult{}, err
	}

	customer, err := s.CustomerRepository.GetByPhone(ctx, shopID, normalized)
	if errors.Is(err, loyalty.ErrCustomerNotFound) {
		return loyalty.LookupResult{New: true, Phone: normalized}, nil
	}
	if err != nil {
		return loyalty.LookupResult{}, fmt.Errorf("failed to look up customer: %w", err)
	}

	view := loyalty.NewCustomerView(customer, program)
	return loyalty.LookupResult{Existing: &view, Phone: normalized}, nil
}

// RegisterCustomer implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) RegisterCustomer(ctx context.Context, req loyalty.RegisterCustomerRequest, program loyalty.Program) (_ loyalty.CustomerView, err error) {
	defer metrics.Observe(engine, "register_customer", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return loyalty.CustomerView{}, err
	}

	phone := validator.NormalizePhone(req.Phone)
	var name *string
	if req.Name != nil {
		if trimmed := strings.TrimSpace(*req.Name); trimmed != "" {
			name = &trimmed
		}
	}

	now := s.now()
	var customer loyalty.Customer

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		created, err := s.CustomerRepository.Create(txCtx, loyalty.Customer{
			ShopID:        req.ShopID,
			Phone:         phone,
			Name:          name,
			CurrentPoints: 1,
			TotalVisits:   1,
			LastVisitAt:   &now,
		})
		if err != nil {
			return err
		}

		if _, err := s.TransactionRepository.Append(txCtx, loyalty.Transaction{
			CustomerID:   created.ID,
			ShopID:       req.ShopID,
			Type:         loyalty.TransactionTypePointAdded,
			PointsChange: 1,
			BalanceAfter: 1,
			StaffID:      req.StaffID,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("failed to append first point: %w", err)
		}

		customer = created
		return nil
	})
	if errors.Is(err, loyalty.ErrCustomerExists) {
		// Another device registered the phone first; award through the cooldown path.
		existing, err := s.CustomerRepository.GetByPhone(ctx, req.ShopID, phone)
		if err != nil {
			return loyalty.CustomerView{}, fmt.Errorf("failed to re-read customer: %w", err)
		}
		return s.AwardPoint(ctx, loyalty.PointRequest{ShopID: req.ShopID, CustomerID: existing.ID, StaffID: req.StaffID}, program)
	}
	if err != nil {
		return loyalty.CustomerView{}, err
	}

	slog.Info("loyalty customer registered", "customer_id", customer.ID, "shop_id", customer.ShopID)

	view := loyalty.NewCustomerView(customer, program)
	s.emitAward(ctx, customer, 0, view, now)
	return view, nil
}

// AwardPoint implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) AwardPoint(ctx context.Context, req loyalty.PointRequest, program loyalty.Program) (_ loyalty.CustomerView, err error) {
	defer metrics.Observe(engine, "award_point", time.Now(), &err)

	cooldown := program.Cooldown
	if cooldown <= 0 {
		cooldown = loyalty.DefaultCooldown
	}

	var (
		customer loyalty.Customer
		before   int
		now      time.Time
	)

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.CustomerRepository.GetByIDForUpdate(txCtx, req.CustomerID, req.ShopID)
		if err != nil {
			return err
		}

		// Read the clock only once the row is locked.
		now = s.now()
		last, err := s.TransactionRepository.LastForCustomer(txCtx, locked.ID, req.ShopID)
		if err != nil {
			return fmt.Errorf("failed to read last transaction: %w", err)
		}
		if last != nil {
			if minutes, active := loyalty.CooldownRemaining(last.CreatedAt, now, cooldown); active {
				return &loyalty.CooldownError{RemainingMinutes: minutes, LastTransactionAt: last.CreatedAt}
			}
		}
		now = entryTime(now, last)

		before = locked.CurrentPoints
		locked.CurrentPoints++
		locked.TotalVisits++
		locked.LastVisitAt = &now

		if err := s.CustomerRepository.UpdateBalance(txCtx, locked); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		if _, err := s.TransactionRepository.Append(txCtx, loyalty.Transaction{
			CustomerID:   locked.ID,
			ShopID:       req.ShopID,
			Type:         loyalty.TransactionTypePointAdded,
			PointsChange: 1,
			BalanceAfter: locked.CurrentPoints,
			StaffID:      req.StaffID,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		customer = locked
		return nil
	})
	if err != nil {
		return loyalty.CustomerView{}, err
	}

	view := loyalty.NewCustomerView(customer, program)
	s.emitAward(ctx, customer, before, view, now)
	return view, nil
}

// RedeemReward implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) RedeemReward(ctx context.Context, req loyalty.PointRequest, program loyalty.Program) (_ loyalty.CustomerView, err error) {
	defer metrics.Observe(engine, "redeem_reward", time.Now(), &err)

	if program.RewardPointsNeeded < 1 {
		return loyalty.CustomerView{}, validator.ValidationErrors{
			{Field: "reward_points_needed", Message: "reward program is not configured"},
		}
	}

	var (
		customer loyalty.Customer
		removed  int
		now      time.Time
	)

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.CustomerRepository.GetByIDForUpdate(txCtx, req.CustomerID, req.ShopID)
		if err != nil {
			return err
		}

		last, err := s.TransactionRepository.LastForCustomer(txCtx, locked.ID, req.ShopID)
		if err != nil {
			return fmt.Errorf("failed to read last transaction: %w", err)
		}
		now = entryTime(s.now(), last)

		if locked.CurrentPoints < program.RewardPointsNeeded {
			return &loyalty.NotEligibleError{
				CurrentPoints:  locked.CurrentPoints,
				RequiredPoints: program.RewardPointsNeeded,
			}
		}

		// The balance resets to zero; the ledger records what was actually removed.
		removed = locked.CurrentPoints
		locked.CurrentPoints = 0
		locked.TotalVisits++
		locked.RewardsRedeemed++
		locked.LastVisitAt = &now

		if err := s.CustomerRepository.UpdateBalance(txCtx, locked); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		if _, err := s.TransactionRepository.Append(txCtx, loyalty.Transaction{
			CustomerID:   locked.ID,
			ShopID:       req.ShopID,
			Type:         loyalty.TransactionTypeRewardRedeemed,
			PointsChange: -removed,
			BalanceAfter: 0,
			StaffID:      req.StaffID,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		customer = locked
		return nil
	})
	if err != nil {
		return loyalty.CustomerView{}, err
	}

	slog.Info("loyalty reward redeemed",
		"customer_id", customer.ID,
		"shop_id", customer.ShopID,
		"points_removed", removed,
		"rewards_redeemed", customer.RewardsRedeemed,
	)
	events.Emit(ctx, s.publisher, events.New(events.TypeRewardRedeemed, customer.ShopID, now, map[string]any{
		"customer_id":          customer.ID,
		"points_removed":       removed,
		"reward_points_needed": program.RewardPointsNeeded,
		"reward_description":   program.RewardDescription,
	}))

	return loyalty.NewCustomerView(customer, program), nil
}

// GetBalance implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) GetBalance(ctx context.Context, shopID string, phone string, program loyalty.Program) (loyalty.CustomerView, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return loyalty.CustomerView{}, err
	}

	customer, err := s.CustomerRepository.GetByPhone(ctx, shopID, normalized)
	if err != nil {
		return loyalty.CustomerView{}, err
	}
	return loyalty.NewCustomerView(customer, program), nil
}

// ListTransactions implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) ListTransactions(ctx context.Context, shopID string, customerID string) ([]loyalty.Transaction, error) {
	if _, err := s.CustomerRepository.GetByID(ctx, customerID, shopID); err != nil {
		return nil, err
	}
	return s.TransactionRepository.ListByCustomer(ctx, customerID, shopID)
}

// AuditCustomer implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) AuditCustomer(ctx context.Context, shopID string, customerID string) (*loyalty.Discrepancy, error) {
	customer, err := s.CustomerRepository.GetByID(ctx, customerID, shopID)
	if err != nil {
		return nil, err
	}
	return s.audit(ctx, customer)
}

// AuditShop implements loyalty.LoyaltyService.
func (s *LoyaltyServiceImpl) AuditShop(ctx context.Context, shopID string) (loyalty.AuditReport, error) {
	customers, err := s.CustomerRepository.ListByShop(ctx, shopID)
	if err != nil {
		return loyalty.AuditReport{}, fmt.Errorf("failed to list customers: %w", err)
	}

	report := loyalty.AuditReport{
		ShopID:        shopID,
		Discrepancies: []loyalty.Discrepancy{},
	}
	for _, c := range customers {
		d, err := s.audit(ctx, c)
		if err != nil {
			return loyalty.AuditReport{}, err
		}
		report.CustomersChecked++
		if d != nil {
			report.Discrepancies = append(report.Discrepancies, *d)
		}
	}

	if len(report.Discrepancies) > 0 {
		slog.Warn("loyalty ledger discrepancies found", "shop_id", shopID, "count", len(report.Discrepancies))
	}
	return report, nil
}

func (s *LoyaltyServiceImpl) audit(ctx context.Context, customer loyalty.Customer) (*loyalty.Discrepancy, error) {
	txs, err := s.TransactionRepository.ListByCustomer(ctx, customer.ID, customer.ShopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return loyalty.ReplayLedger(customer, txs), nil
}

func (s *LoyaltyServiceImpl) emitAward(ctx context.Context, customer loyalty.Customer, before int, view loyalty.CustomerView, now time.Time) {
	slog.Info("loyalty point awarded",
		"customer_id", customer.ID,
		"shop_id", customer.ShopID,
		"current_points", customer.CurrentPoints,
		"reward_ready", view.RewardReady,
	)

	events.Emit(ctx, s.publisher, events.New(events.TypePointAwarded, customer.ShopID, now, map[string]any{
		"customer_id":    customer.ID,
		"current_points": customer.CurrentPoints,
	}))
	if view.RewardReady && before < view.RewardPointsNeeded {
		events.Emit(ctx, s.publisher, events.New(events.TypeRewardReady, customer.ShopID, now, map[string]any{
			"customer_id":        customer.ID,
			"current_points":     customer.CurrentPoints,
			"reward_description": view.RewardDescription,
		}))
	}
}

// entryTime keeps a customer's ledger timestamps non-decreasing when the
// previous entry came from an instance whose clock is ahead.
func entryTime(now time.Time, last *loyalty.Transaction) time.Time {
	if last != nil && now.Before(last.CreatedAt) {
		return last.CreatedAt
	}
	return now
}

func normalizePhone(phone string) (string, error) {
	normalized := validator.NormalizePhone(phone)
	if normalized == "" {
		return "", validator.ValidationErrors{
			{Field: "phone", Message: "phone is required"},
		}
	}
	return normalized, nil
}

func NewLoyaltyService(
	tx database.Transactor,
	customerRepository loyalty.CustomerRepository,
	transactionRepository loyalty.TransactionRepository,
	publisher events.Publisher,
	now func() time.Time,
) loyalty.LoyaltyService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LoyaltyServiceImpl{
		tx:                    tx,
		CustomerRepository:    customerRepository,
		TransactionRepository: transactionRepository,
		publisher:             publisher,
		now:                   now,
	}
}
