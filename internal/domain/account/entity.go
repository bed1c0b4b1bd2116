package account

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents account role (matches the accounts.role check constraint)
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Account represents a tenant account that owns a credit balance.
// The two counters are a cached projection of the transaction log,
// maintained transactionally alongside each ledger write.
type Account struct {
	ID               uuid.UUID      `db:"id"`
	Email            string         `db:"email"`
	Role             Role           `db:"role"`
	FreeCredits      int            `db:"free_credits"`
	PurchasedCredits int            `db:"purchased_credits"`
	StripeCustomerID sql.NullString `db:"stripe_customer_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// IsAdmin returns true if the account is an administrator.
// Admin accounts run billable operations without consuming credits.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TotalCredits returns the combined free and purchased balance
func (a *Account) TotalCredits() int {
	return a.FreeCredits + a.PurchasedCredits
}
