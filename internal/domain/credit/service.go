package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/domain/account"
)

// AccountStore is the slice of the account store the ledger consumes.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// Service defines the credit ledger operations
type Service interface {
	// GetBalance returns the current balance. Unknown accounts read as zero.
	GetBalance(ctx context.Context, accountID uuid.UUID) (Balance, error)

	// HasCredits reports whether the account can afford amount credits.
	// Admin accounts always can.
	HasCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error)

	// Deduct atomically draws credits, free bucket first. Insufficient
	// credits and unknown accounts come back as a non-deducted result.
	Deduct(ctx context.Context, accountID uuid.UUID, description string, amount int) (*DeductResult, error)

	// AddCredits credits the account and appends a ledger row. A missing
	// account here is a caller bug and fails loudly.
	AddCredits(ctx context.Context, accountID uuid.UUID, amount int, txType TxType, description string, opts AddOptions) (*Transaction, error)

	// GrantSignupBonus issues the one-time free credit grant for a new account
	GrantSignupBonus(ctx context.Context, accountID uuid.UUID) error

	// ListTransactions returns paginated transaction history, newest first
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error)

	// CanRefund checks refund eligibility and returns the blocking reason
	CanRefund(ctx context.Context, transactionID, accountID uuid.UUID) (bool, string, error)

	// ProcessRefund re-validates eligibility and reverses the purchase
	ProcessRefund(ctx context.Context, transactionID, accountID uuid.UUID) (*RefundResult, error)
}

// service implements the Service interface
type service struct {
	repo        Repository
	accounts    AccountStore
	signupBonus int
}

// NewService creates a new credit service
func NewService(repo Repository, accounts AccountStore, signupBonus int) Service {
	return &service{
		repo:        repo,
		accounts:    accounts,
		signupBonus: signupBonus,
	}
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (Balance, error) {
	free, purchased, err := s.repo.GetBalances(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Free: free, Purchased: purchased, Total: free + purchased}, nil
}

func (s *service) HasCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error) {
	if amount < 1 {
		amount = 1
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if acct == nil {
		return false, nil
	}
	if acct.IsAdmin() {
		return true, nil
	}

	return acct.TotalCredits() >= amount, nil
}

func (s *service) Deduct(ctx context.Context, accountID uuid.UUID, description string, amount int) (*DeductResult, error) {
	if amount < 1 {
		return &DeductResult{Deducted: false, Reason: "amount must be at least 1"}, nil
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return &DeductResult{Deducted: false, Reason: "account not found"}, nil
	}

	// Admin bypass: the operation counts as paid for, balances and the
	// ledger stay untouched.
	if acct.IsAdmin() {
		return &DeductResult{Deducted: true, Bypassed: true}, nil
	}

	txn, err := s.repo.Deduct(ctx, accountID, amount, description)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			return &DeductResult{Deducted: false, Reason: "insufficient credits"}, nil
		}
		return nil, err
	}

	return &DeductResult{Deducted: true, Transaction: txn}, nil
}

func (s *service) AddCredits(ctx context.Context, accountID uuid.UUID, amount int, txType TxType, description string, opts AddOptions) (*Transaction, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}
	if !txType.Valid() || txType == TxTypeUsage || txType == TxTypeRefund {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxType, txType)
	}

	return s.repo.Add(ctx, accountID, amount, txType, description, opts)
}

func (s *service) GrantSignupBonus(ctx context.Context, accountID uuid.UUID) error {
	if s.signupBonus < 1 {
		return nil
	}

	_, err := s.AddCredits(ctx, accountID, s.signupBonus, TxTypeSignupBonus, "signup bonus", AddOptions{})
	return err
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	return s.repo.ListTransactions(ctx, accountID, Pagination{Limit: limit, Offset: offset})
}
