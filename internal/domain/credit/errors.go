package credit

import "errors"

var (
	// ErrInsufficientCredits is returned by the repository when the combined
	// balance cannot cover a deduction
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is < 1 on an add path
	ErrInvalidAmount = errors.New("invalid amount: must be at least 1")

	// ErrInvalidTxType is returned when a caller passes an unknown or
	// non-credit transaction type to an add path
	ErrInvalidTxType = errors.New("invalid transaction type")

	// ErrAccountNotFound is returned when the account doesn't exist on a path
	// where that indicates a caller bug
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateReference is returned when a checkout session reference was
	// already credited (webhook replay)
	ErrDuplicateReference = errors.New("checkout session already credited")

	// ErrAlreadyRefunded is returned when the purchase row was refunded by a
	// concurrent request
	ErrAlreadyRefunded = errors.New("transaction already refunded")

	// ErrCreditsSpent is returned when the purchased pool dropped below the
	// original purchase amount
	ErrCreditsSpent = errors.New("credits already used, cannot refund")

	ErrInternal = errors.New("internal error")
)

// Refund ineligibility reasons surfaced to callers
const (
	RefundReasonNotFound        = "transaction not found"
	RefundReasonNotPurchase     = "only purchases can be refunded"
	RefundReasonAlreadyRefunded = "transaction already refunded"
	RefundReasonCreditsSpent    = "credits already used, cannot refund"
)
