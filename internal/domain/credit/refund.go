package credit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// CanRefund checks eligibility in order, short-circuiting on the first
// failure. The purchased-pool check is a fungibility heuristic, not a trace
// of which specific credits were spent.
func (s *service) CanRefund(ctx context.Context, transactionID, accountID uuid.UUID) (bool, string, error) {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return false, "", err
	}
	if txn == nil || txn.AccountID != accountID {
		return false, RefundReasonNotFound, nil
	}
	if txn.TxType != TxTypePurchase {
		return false, RefundReasonNotPurchase, nil
	}
	if txn.IsRefunded {
		return false, RefundReasonAlreadyRefunded, nil
	}

	_, purchased, err := s.repo.GetBalances(ctx, accountID)
	if err != nil {
		return false, "", err
	}
	if purchased < txn.Amount {
		return false, RefundReasonCreditsSpent, nil
	}

	return true, "", nil
}

// ProcessRefund never trusts a prior eligibility check across a time gap: the
// repository re-validates with conditional updates inside the commit itself.
func (s *service) ProcessRefund(ctx context.Context, transactionID, accountID uuid.UUID) (*RefundResult, error) {
	eligible, reason, err := s.CanRefund(ctx, transactionID, accountID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return &RefundResult{Success: false, Message: reason}, nil
	}

	original, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return &RefundResult{Success: false, Message: RefundReasonNotFound}, nil
	}

	refund, err := s.repo.ProcessRefund(ctx, original)
	if err != nil {
		switch {
		case errors.Is(err, ErrCreditsSpent):
			return &RefundResult{Success: false, Message: RefundReasonCreditsSpent}, nil
		case errors.Is(err, ErrAlreadyRefunded):
			return &RefundResult{Success: false, Message: RefundReasonAlreadyRefunded}, nil
		}
		return nil, err
	}

	return &RefundResult{
		Success:        true,
		Message:        "refund processed",
		RefundedAmount: original.Amount,
		Transaction:    refund,
	}, nil
}
