package loyalty

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	testShopID = "5b0c1f0e-8f43-4c7e-9a55-0d9b7b0b6a01"
	testPhone  = "07700900000"
)

var program = loyalty.Program{RewardPointsNeeded: 10, RewardDescription: "Free coffee", Cooldown: 30 * time.Minute}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *ledgerStore
	clock  *clock
	events *recorder
	svc    loyalty.LoyaltyService
}

func newFixture() *fixture {
	f := &fixture{
		store:  newLedgerStore(),
		clock:  &clock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		events: &recorder{},
	}
	f.svc = NewLoyaltyService(f.store, f.store, f.store, f.events, f.clock.Now)
	return f
}

func (f *fixture) register(t *testing.T, phone string) loyalty.CustomerView {
	t.Helper()
	view, err := f.svc.RegisterCustomer(context.Background(), loyalty.RegisterCustomerRequest{ShopID: testShopID, Phone: phone}, program)
	require.NoError(t, err)
	return view
}

func (f *fixture) assertLedgerConsistent(t *testing.T, customerID string) {
	t.Helper()
	d, err := f.svc.AuditCustomer(context.Background(), testShopID, customerID)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLookupOrInitCustomer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.LookupOrInitCustomer(ctx, testShopID, "07700 900-000", program)
	require.NoError(t, err)
	assert.True(t, res.New)
	assert.Nil(t, res.Existing)
	assert.Equal(t, testPhone, res.Phone)

	f.register(t, "+07700 900 000")

	res, err = f.svc.LookupOrInitCustomer(ctx, testShopID, testPhone, program)
	require.NoError(t, err)
	assert.False(t, res.New)
	require.NotNil(t, res.Existing)
	assert.Equal(t, 1, res.Existing.CurrentPoints)

	_, err = f.svc.LookupOrInitCustomer(ctx, testShopID, "  --  ", program)
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestLoyalty_TenVisitsThenRedeem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view := f.register(t, testPhone)
	assert.Equal(t, 1, view.CurrentPoints)
	assert.False(t, view.RewardReady)

	for i := 2; i <= 10; i++ {
		f.clock.Advance(31 * time.Minute)
		view, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
		require.NoError(t, err)
		assert.Equal(t, i, view.CurrentPoints)
		assert.Equal(t, i == 10, view.RewardReady)
	}
	assert.Equal(t, 1, f.events.count(events.TypeRewardReady))

	redeemed, err := f.svc.RedeemReward(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	require.NoError(t, err)
	assert.Equal(t, 0, redeemed.CurrentPoints)
	assert.Equal(t, 1, redeemed.RewardsRedeemed)
	assert.Equal(t, 11, redeemed.TotalVisits)
	assert.False(t, redeemed.RewardReady)

	txs, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)
	require.Len(t, txs, 11)
	last := txs[len(txs)-1]
	assert.Equal(t, loyalty.TransactionTypeRewardRedeemed, last.Type)
	assert.Equal(t, -10, last.PointsChange)
	assert.Equal(t, 0, last.BalanceAfter)

	f.assertLedgerConsistent(t, view.ID)
}

func TestAwardPoint_Cooldown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)

	f.clock.Advance(10 * time.Minute)
	_, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)

	var cooldown *loyalty.CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 20, cooldown.RemainingMinutes)
	assert.ErrorIs(t, err, loyalty.ErrCooldownActive)

	f.clock.Advance(19*time.Minute + 30*time.Second)
	_, err = f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 1, cooldown.RemainingMinutes)

	f.clock.Advance(30 * time.Second)
	awarded, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	require.NoError(t, err)
	assert.Equal(t, 2, awarded.CurrentPoints)

	customer, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	assert.Equal(t, 2, customer.TotalVisits)
	f.assertLedgerConsistent(t, view.ID)
}

func TestAwardPoint_CooldownCountsRedemptions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)

	small := loyalty.Program{RewardPointsNeeded: 1, Cooldown: 30 * time.Minute}
	_, err := f.svc.RedeemReward(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, small)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, small)
	assert.ErrorIs(t, err, loyalty.ErrCooldownActive)
}

func TestRedeemReward_NotEligibleDoesNotMutate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)
	for i := 0; i < 6; i++ {
		f.clock.Advance(45 * time.Minute)
		_, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
		require.NoError(t, err)
	}

	before, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	txsBefore, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)

	_, err = f.svc.RedeemReward(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	var notEligible *loyalty.NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, 7, notEligible.CurrentPoints)
	assert.Equal(t, 10, notEligible.RequiredPoints)
	assert.Equal(t, 3, notEligible.PointsShort())

	after, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	txsAfter, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, txsBefore, txsAfter)
}

func TestRedeemReward_OverThresholdKeepsLedgerConsistent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)
	for i := 0; i < 11; i++ {
		f.clock.Advance(time.Hour)
		_, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
		require.NoError(t, err)
	}

	redeemed, err := f.svc.RedeemReward(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	require.NoError(t, err)
	assert.Equal(t, 0, redeemed.CurrentPoints)

	txs, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, -12, txs[len(txs)-1].PointsChange)
	f.assertLedgerConsistent(t, view.ID)
}

func TestAwardPoint_FailedAppendRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)

	f.clock.Advance(time.Hour)
	f.store.failAppend = true
	_, err := f.svc.AwardPoint(ctx, loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
	assert.ErrorIs(t, err, database.ErrStore)

	customer, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.CurrentPoints)
	f.assertLedgerConsistent(t, view.ID)
}

func TestAwardPoint_ConcurrentDevicesAwardOnce(t *testing.T) {
	f := newFixture()
	view := f.register(t, testPhone)
	f.clock.Advance(time.Hour)

	var (
		g         errgroup.Group
		awarded   atomic.Int32
		cooldowns atomic.Int32
	)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.svc.AwardPoint(context.Background(), loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}, program)
			switch {
			case err == nil:
				awarded.Add(1)
			case loyaltyCooldown(err):
				cooldowns.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), awarded.Load())
	assert.Equal(t, int32(9), cooldowns.Load())

	customer, err := f.store.GetByID(context.Background(), view.ID, testShopID)
	require.NoError(t, err)
	assert.Equal(t, 2, customer.CurrentPoints)
	f.assertLedgerConsistent(t, view.ID)
}

func loyaltyCooldown(err error) bool {
	var cooldown *loyalty.CooldownError
	return errors.As(err, &cooldown)
}

func TestRegisterCustomer_ConcurrentRegistrationFallsBackToAward(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Another device registers the same phone just before this request's transaction.
	f.store.beforeTx = func() {
		_, err := f.store.Create(ctx, loyalty.Customer{ShopID: testShopID, Phone: testPhone, CurrentPoints: 1, TotalVisits: 1})
		require.NoError(t, err)
		customer, err := f.store.GetByPhone(ctx, testShopID, testPhone)
		require.NoError(t, err)
		_, err = f.store.Append(ctx, loyalty.Transaction{
			CustomerID: customer.ID, ShopID: testShopID, Type: loyalty.TransactionTypePointAdded,
			PointsChange: 1, BalanceAfter: 1, CreatedAt: f.clock.Now(),
		})
		require.NoError(t, err)
	}

	_, err := f.svc.RegisterCustomer(ctx, loyalty.RegisterCustomerRequest{ShopID: testShopID, Phone: testPhone}, program)
	assert.ErrorIs(t, err, loyalty.ErrCooldownActive)

	customers, err := f.store.ListByShop(ctx, testShopID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, 1, customers[0].CurrentPoints)
	f.assertLedgerConsistent(t, customers[0].ID)
}

func TestRegisterCustomer_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RegisterCustomer(context.Background(), loyalty.RegisterCustomerRequest{ShopID: testShopID, Phone: "12"}, program)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "phone", verrs[0].Field)
}

func TestGetBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.GetBalance(ctx, testShopID, testPhone, program)
	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)

	f.register(t, testPhone)

	view, err := f.svc.GetBalance(ctx, testShopID, "07700-900-000", program)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentPoints)
	assert.Equal(t, 9, view.PointsToReward)

	_, err = f.svc.GetBalance(ctx, "7c9e6679-7425-40de-944b-e07fc1f90ae7", testPhone, program)
	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestAuditShop_ReportsDrift(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	good := f.register(t, testPhone)
	bad := f.register(t, "07700900001")

	drifted, err := f.store.GetByID(ctx, bad.ID, testShopID)
	require.NoError(t, err)
	drifted.CurrentPoints = 5
	require.NoError(t, f.store.UpdateBalance(ctx, drifted))

	report, err := f.svc.AuditShop(ctx, testShopID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CustomersChecked)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, bad.ID, report.Discrepancies[0].CustomerID)
	assert.Equal(t, 1, report.Discrepancies[0].LedgerSum)
	assert.Equal(t, 5, report.Discrepancies[0].CurrentPoints)

	f.assertLedgerConsistent(t, good.ID)
}

// inTimeOrder sorts a ledger by created_at, keeping append order for ties.
func inTimeOrder(txs []loyalty.Transaction) []loyalty.Transaction {
	out := append([]loyalty.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fixture) awardTo(t *testing.T, customerID string, points int) {
	t.Helper()
	for i := 0; i < points; i++ {
		f.clock.Advance(31 * time.Minute)
		_, err := f.svc.AwardPoint(context.Background(), loyalty.PointRequest{ShopID: testShopID, CustomerID: customerID}, program)
		require.NoError(t, err)
	}
}

func TestRedeemReward_AwardFromFasterClockKeepsLedgerOrdered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)
	f.awardTo(t, view.ID, 9)
	f.clock.Advance(31 * time.Minute)
	req := loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}

	// A second device whose clock runs a second ahead awards just before the redemption.
	f.store.beforeTx = func() {
		f.clock.Advance(time.Second)
		_, err := f.svc.AwardPoint(ctx, req, program)
		require.NoError(t, err)
		f.clock.Advance(-time.Second)
	}

	redeemed, err := f.svc.RedeemReward(ctx, req, program)
	require.NoError(t, err)
	assert.Equal(t, 0, redeemed.CurrentPoints)

	txs, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)
	require.Len(t, txs, 12)
	award, redeem := txs[10], txs[11]
	assert.Equal(t, loyalty.TransactionTypePointAdded, award.Type)
	assert.Equal(t, loyalty.TransactionTypeRewardRedeemed, redeem.Type)
	assert.Equal(t, -11, redeem.PointsChange)
	assert.False(t, redeem.CreatedAt.Before(award.CreatedAt))

	customer, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	assert.Nil(t, loyalty.ReplayLedger(customer, inTimeOrder(txs)))
	f.assertLedgerConsistent(t, view.ID)
}

func TestRedeemReward_RacingAwardSerializes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.register(t, testPhone)
	f.awardTo(t, view.ID, 9)
	f.clock.Advance(31 * time.Minute)
	req := loyalty.PointRequest{ShopID: testShopID, CustomerID: view.ID}

	var g errgroup.Group
	var awardErr, redeemErr error
	g.Go(func() error {
		_, awardErr = f.svc.AwardPoint(ctx, req, program)
		return nil
	})
	g.Go(func() error {
		_, redeemErr = f.svc.RedeemReward(ctx, req, program)
		return nil
	})
	require.NoError(t, g.Wait())

	require.NoError(t, redeemErr)
	if awardErr != nil {
		assert.True(t, loyaltyCooldown(awardErr), "unexpected award error: %v", awardErr)
	}

	customer, err := f.store.GetByID(ctx, view.ID, testShopID)
	require.NoError(t, err)
	assert.Equal(t, 0, customer.CurrentPoints)

	txs, err := f.svc.ListTransactions(ctx, testShopID, view.ID)
	require.NoError(t, err)
	assert.Nil(t, loyalty.ReplayLedger(customer, inTimeOrder(txs)))
	f.assertLedgerConsistent(t, view.ID)
}
