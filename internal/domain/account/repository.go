package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines account data access interface
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new account repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create creates a new account
func (r *repository) Create(ctx context.Context, acct *Account) error {
	query := `
		INSERT INTO accounts (id, email, role, free_credits, purchased_credits)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		acct.ID,
		acct.Email,
		acct.Role,
		acct.FreeCredits,
		acct.PurchasedCredits,
	)
	if err != nil {
		return fmt.Errorf("account repository create: %w", err)
	}

	return nil
}

// GetByID returns account by ID, nil when not found
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `
		SELECT id, email, role, free_credits, purchased_credits, stripe_customer_id,
		       created_at, updated_at
		FROM accounts WHERE id = $1
	`
	var acct Account
	err := r.db.GetContext(ctx, &acct, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &acct, nil
}

// GetByEmail returns account by email, nil when not found
func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, email, role, free_credits, purchased_credits, stripe_customer_id,
		       created_at, updated_at
		FROM accounts WHERE email = $1
	`
	var acct Account
	err := r.db.GetContext(ctx, &acct, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &acct, nil
}

// SetStripeCustomerID stores the gateway customer reference once created
func (r *repository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `UPDATE accounts SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, customerID)
	if err != nil {
		return fmt.Errorf("account repository set stripe customer: %w", err)
	}
	return nil
}
