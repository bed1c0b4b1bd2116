package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository provides ledger and balance operations. Every balance mutation
// commits together with its transaction row, or not at all.
type Repository interface {
	GetBalances(ctx context.Context, accountID uuid.UUID) (free int, purchased int, err error)
	Deduct(ctx context.Context, accountID uuid.UUID, amount int, description string) (*Transaction, error)
	Add(ctx context.Context, accountID uuid.UUID, amount int, txType TxType, description string, opts AddOptions) (*Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ProcessRefund(ctx context.Context, original *Transaction) (*Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, pagination Pagination) ([]Transaction, error)
}

// LedgerRepository implements Repository on Postgres.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalances returns the two cached counters. Unknown accounts read as zero.
func (r *LedgerRepository) GetBalances(ctx context.Context, accountID uuid.UUID) (int, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var row struct {
		Free      int `db:"free_credits"`
		Purchased int `db:"purchased_credits"`
	}
	err := r.db.GetContext(ctx2, &row, `SELECT free_credits, purchased_credits FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("%w: get balances", ErrInternal)
	}

	return row.Free, row.Purchased, nil
}

// Deduct atomically draws amount from the free bucket first, then purchased.
// The conditional UPDATE makes the feasibility check and the mutation a single
// step, so two concurrent callers can never both pass on a stale balance. One
// usage row covers the combined draw.
func (r *LedgerRepository) Deduct(ctx context.Context, accountID uuid.UUID, amount int, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	// Both SET expressions evaluate against the pre-update row, so the free
	// bucket drains before purchased is touched.
	result, err := tx.ExecContext(ctx2, `
		UPDATE accounts
		SET free_credits      = free_credits - LEAST(free_credits, $2),
		    purchased_credits = purchased_credits - ($2 - LEAST(free_credits, $2)),
		    updated_at        = NOW()
		WHERE id = $1 AND free_credits + purchased_credits >= $2
	`, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: update account balance", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return nil, ErrInsufficientCredits
	}

	txn, err := r.insertLedger(ctx2, tx, &Transaction{
		AccountID:   accountID,
		Amount:      -amount,
		TxType:      TxTypeUsage,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return txn, nil
}

// Add credits the bucket selected by the transaction type and appends the
// ledger row in the same transaction. A duplicate checkout session reference
// trips the unique index and reports ErrDuplicateReference.
func (r *LedgerRepository) Add(ctx context.Context, accountID uuid.UUID, amount int, txType TxType, description string, opts AddOptions) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	bucket := "purchased_credits"
	if txType.CreditsFreeTier() {
		bucket = "free_credits"
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, fmt.Sprintf(`
		UPDATE accounts
		SET %s = %s + $2, updated_at = NOW()
		WHERE id = $1
	`, bucket, bucket), accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: update account balance", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return nil, ErrAccountNotFound
	}

	txn, err := r.insertLedger(ctx2, tx, &Transaction{
		AccountID:             accountID,
		Amount:                amount,
		TxType:                txType,
		Description:           description,
		PackID:                opts.PackID,
		StripeSessionID:       nullString(opts.SessionID),
		StripePaymentIntentID: nullString(opts.PaymentIntentID),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return txn, nil
}

// GetTransaction returns a ledger row by id, nil when not found.
func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var txn Transaction
	err := r.db.GetContext(ctx2, &txn, `
		SELECT id, account_id, amount, tx_type, description, pack_id,
		       stripe_session_id, stripe_payment_intent_id, is_refunded, created_at
		FROM credit_transactions
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get transaction", ErrInternal)
	}

	return &txn, nil
}

// ProcessRefund reverses a purchase in one transaction: claw back the
// purchased pool, flip is_refunded on the original row, append the refund
// row. Both conditional updates re-validate eligibility at commit time, so a
// stale CanRefund answer can never double-refund or overdraw.
func (r *LedgerRepository) ProcessRefund(ctx context.Context, original *Transaction) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE accounts
		SET purchased_credits = purchased_credits - $2, updated_at = NOW()
		WHERE id = $1 AND purchased_credits >= $2
	`, original.AccountID, original.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: claw back purchased credits", ErrInternal)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrCreditsSpent
	}

	result, err = tx.ExecContext(ctx2, `
		UPDATE credit_transactions
		SET is_refunded = TRUE
		WHERE id = $1 AND tx_type = 'purchase' AND is_refunded = FALSE
	`, original.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: flag original transaction", ErrInternal)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrAlreadyRefunded
	}

	txn, err := r.insertLedger(ctx2, tx, &Transaction{
		AccountID:             original.AccountID,
		Amount:                -original.Amount,
		TxType:                TxTypeRefund,
		Description:           fmt.Sprintf("refund of purchase %s", original.ID),
		PackID:                original.PackID,
		StripePaymentIntentID: original.StripePaymentIntentID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return txn, nil
}

// ListTransactions returns the account's ledger, newest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, pagination Pagination) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT id, account_id, amount, tx_type, description, pack_id,
		       stripe_session_id, stripe_payment_intent_id, is_refunded, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

func (r *LedgerRepository) insertLedger(ctx context.Context, tx *sqlx.Tx, txn *Transaction) (*Transaction, error) {
	if !txn.TxType.Valid() {
		return nil, ErrInvalidTxType
	}
	if strings.TrimSpace(txn.Description) == "" {
		txn.Description = "credit balance adjustment"
	}

	var inserted Transaction
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO credit_transactions (
			id, account_id, amount, tx_type, description, pack_id,
			stripe_session_id, stripe_payment_intent_id
		)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, account_id, amount, tx_type, description, pack_id,
		          stripe_session_id, stripe_payment_intent_id, is_refunded, created_at
	`, txn.AccountID, txn.Amount, txn.TxType, txn.Description, txn.PackID,
		txn.StripeSessionID, txn.StripePaymentIntentID).StructScan(&inserted)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	return &inserted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
