package postgresql

import (
	"context"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type loyaltyTransactionRepository struct {
	db *database.DB
}

const loyaltyTransactionColumns = `
	id, customer_id, shop_id, type, points_change, balance_after, staff_id, created_at
`

func scanLoyaltyTransaction(row pgx.Row) (loyalty.Transaction, error) {
	var (
		tx     loyalty.Transaction
		txType string
	)
	err := row.Scan(
		&tx.ID, &tx.CustomerID, &tx.ShopID, &txType, &tx.PointsChange, &tx.BalanceAfter, &tx.StaffID, &tx.CreatedAt,
	)
	tx.Type = loyalty.TransactionType(txType)
	return tx, err
}

// Append implements loyalty.TransactionRepository.
func (r *loyaltyTransactionRepository) Append(ctx context.Context, tx loyalty.Transaction) (loyalty.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO loyalty_transactions (
			customer_id, shop_id, type, points_change, balance_after, staff_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := q.QueryRow(ctx, query,
		tx.CustomerID,
		tx.ShopID,
		string(tx.Type),
		tx.PointsChange,
		tx.BalanceAfter,
		tx.StaffID,
		tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return loyalty.Transaction{}, database.NewStoreError("append loyalty transaction", err)
	}

	return tx, nil
}

// LastForCustomer implements loyalty.TransactionRepository.
func (r *loyaltyTransactionRepository) LastForCustomer(ctx context.Context, customerID string, shopID string) (*loyalty.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + loyaltyTransactionColumns + `
		FROM loyalty_transactions
		WHERE customer_id = $1 AND shop_id = $2
		ORDER BY seq DESC
		LIMIT 1
	`

	tx, err := scanLoyaltyTransaction(q.QueryRow(ctx, query, customerID, shopID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, database.NewStoreError("get last loyalty transaction", err)
	}
	return &tx, nil
}

// ListByCustomer implements loyalty.TransactionRepository.
func (r *loyaltyTransactionRepository) ListByCustomer(ctx context.Context, customerID string, shopID string) ([]loyalty.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + loyaltyTransactionColumns + `
		FROM loyalty_transactions
		WHERE customer_id = $1 AND shop_id = $2
		ORDER BY seq
	`

	rows, err := q.Query(ctx, query, customerID, shopID)
	if err != nil {
		return nil, database.NewStoreError("list loyalty transactions", err)
	}
	defer rows.Close()

	var txs []loyalty.Transaction
	for rows.Next() {
		tx, err := scanLoyaltyTransaction(rows)
		if err != nil {
			return nil, database.NewStoreError("scan loyalty transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStoreError("list loyalty transactions", err)
	}

	return txs, nil
}

func NewLoyaltyTransactionRepository(db *database.DB) loyalty.TransactionRepository {
	return &loyaltyTransactionRepository{db: db}
}
