package loyalty

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

// ledgerStore is an in-memory customer ledger. WithinTransaction serializes
// units of work and restores a snapshot when one fails.
type ledgerStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	customers map[string]loyalty.Customer
	txs       []loyalty.Transaction

	failAppend bool
	// beforeTx runs once before the next unit of work starts.
	beforeTx func()
}

func newLedgerStore() *ledgerStore {
	return &ledgerStore{customers: map[string]loyalty.Customer{}}
}

func (l *ledgerStore) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if hook := l.beforeTx; hook != nil {
		l.beforeTx = nil
		hook()
	}

	l.txMu.Lock()
	defer l.txMu.Unlock()

	l.mu.Lock()
	customers := make(map[string]loyalty.Customer, len(l.customers))
	for k, v := range l.customers {
		customers[k] = v
	}
	txs := append([]loyalty.Transaction(nil), l.txs...)
	l.mu.Unlock()

	if err := fn(ctx); err != nil {
		l.mu.Lock()
		l.customers = customers
		l.txs = txs
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *ledgerStore) GetByPhone(ctx context.Context, shopID string, phone string) (loyalty.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.customers {
		if c.ShopID == shopID && c.Phone == phone {
			return c, nil
		}
	}
	return loyalty.Customer{}, loyalty.ErrCustomerNotFound
}

func (l *ledgerStore) GetByID(ctx context.Context, id string, shopID string) (loyalty.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.customers[id]
	if !ok || c.ShopID != shopID {
		return loyalty.Customer{}, loyalty.ErrCustomerNotFound
	}
	return c, nil
}

func (l *ledgerStore) GetByIDForUpdate(ctx context.Context, id string, shopID string) (loyalty.Customer, error) {
	return l.GetByID(ctx, id, shopID)
}

func (l *ledgerStore) Create(ctx context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.customers {
		if c.ShopID == customer.ShopID && c.Phone == customer.Phone {
			return loyalty.Customer{}, loyalty.ErrCustomerExists
		}
	}
	customer.ID = uuid.NewString()
	l.customers[customer.ID] = customer
	return customer, nil
}

func (l *ledgerStore) UpdateBalance(ctx context.Context, customer loyalty.Customer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.customers[customer.ID]; !ok {
		return loyalty.ErrCustomerNotFound
	}
	l.customers[customer.ID] = customer
	return nil
}

func (l *ledgerStore) ListByShop(ctx context.Context, shopID string) ([]loyalty.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loyalty.Customer
	for _, c := range l.customers {
		if c.ShopID == shopID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}

func (l *ledgerStore) Append(ctx context.Context, tx loyalty.Transaction) (loyalty.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAppend {
		return loyalty.Transaction{}, database.NewStoreError("append loyalty transaction", errors.New("connection reset"))
	}
	tx.ID = uuid.NewString()
	l.txs = append(l.txs, tx)
	return tx, nil
}

func (l *ledgerStore) LastForCustomer(ctx context.Context, customerID string, shopID string) (*loyalty.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.txs) - 1; i >= 0; i-- {
		if l.txs[i].CustomerID == customerID && l.txs[i].ShopID == shopID {
			tx := l.txs[i]
			return &tx, nil
		}
	}
	return nil, nil
}

func (l *ledgerStore) ListByCustomer(ctx context.Context, customerID string, shopID string) ([]loyalty.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loyalty.Transaction
	for _, tx := range l.txs {
		if tx.CustomerID == customerID && tx.ShopID == shopID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
