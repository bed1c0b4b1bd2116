package credit

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypePurchase    TxType = "purchase"
	TxTypeUsage       TxType = "usage"
	TxTypeRefund      TxType = "refund"
	TxTypeFreeGrant   TxType = "free_grant"
	TxTypeSignupBonus TxType = "signup_bonus"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	switch t {
	case TxTypePurchase, TxTypeUsage, TxTypeRefund, TxTypeFreeGrant, TxTypeSignupBonus:
		return true
	}
	return false
}

// CreditsFreeTier reports whether an addition of this type goes to the free
// bucket. Everything else lands on purchased credits.
func (t TxType) CreditsFreeTier() bool {
	return t == TxTypeFreeGrant || t == TxTypeSignupBonus
}

// Transaction is a ledger row. Rows are append-only; the single exception is
// the is_refunded flag flipped on a purchase row when its refund is processed.
type Transaction struct {
	ID                    uuid.UUID      `db:"id"`
	AccountID             uuid.UUID      `db:"account_id"`
	Amount                int            `db:"amount"` // positive = credit, negative = debit
	TxType                TxType         `db:"tx_type"`
	Description           string         `db:"description"`
	PackID                uuid.NullUUID  `db:"pack_id"`
	StripeSessionID       sql.NullString `db:"stripe_session_id"`
	StripePaymentIntentID sql.NullString `db:"stripe_payment_intent_id"`
	IsRefunded            bool           `db:"is_refunded"`
	CreatedAt             time.Time      `db:"created_at"`
}

// Balance is the two cached counters plus their sum.
type Balance struct {
	Free      int `json:"free"`
	Purchased int `json:"purchased"`
	Total     int `json:"total"`
}

// AddOptions carries optional references attached to an addition.
type AddOptions struct {
	PackID          uuid.NullUUID
	SessionID       string // external checkout session, unique per credit grant
	PaymentIntentID string
}

// DeductResult reports the outcome of a deduction. Insufficient credits and
// missing accounts are business outcomes, not errors.
type DeductResult struct {
	Deducted    bool
	Bypassed    bool // admin accounts succeed without touching balances
	Reason      string
	Transaction *Transaction
}

// RefundResult reports the outcome of a refund attempt.
type RefundResult struct {
	Success        bool
	Message        string
	RefundedAmount int
	Transaction    *Transaction
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
