package credit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func purchaseTxn(id, accountID uuid.UUID, amount int) *Transaction {
	return &Transaction{
		ID:        id,
		AccountID: accountID,
		Amount:    amount,
		TxType:    TxTypePurchase,
	}
}

func TestService_CanRefund(t *testing.T) {
	accountID := uuid.New()
	txnID := uuid.New()

	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
		eligible   bool
		reason     string
	}{
		{
			name: "missing transaction",
			setupMocks: func(repo *MockRepository) {
				repo.On("GetTransaction", mock.Anything, txnID).Return(nil, nil)
			},
			eligible: false,
			reason:   RefundReasonNotFound,
		},
		{
			name: "transaction owned by someone else",
			setupMocks: func(repo *MockRepository) {
				repo.On("GetTransaction", mock.Anything, txnID).
					Return(purchaseTxn(txnID, uuid.New(), 50), nil)
			},
			eligible: false,
			reason:   RefundReasonNotFound,
		},
		{
			name: "usage rows are not refundable",
			setupMocks: func(repo *MockRepository) {
				txn := purchaseTxn(txnID, accountID, -5)
				txn.TxType = TxTypeUsage
				repo.On("GetTransaction", mock.Anything, txnID).Return(txn, nil)
			},
			eligible: false,
			reason:   RefundReasonNotPurchase,
		},
		{
			name: "already refunded",
			setupMocks: func(repo *MockRepository) {
				txn := purchaseTxn(txnID, accountID, 50)
				txn.IsRefunded = true
				repo.On("GetTransaction", mock.Anything, txnID).Return(txn, nil)
			},
			eligible: false,
			reason:   RefundReasonAlreadyRefunded,
		},
		{
			name: "purchased pool already spent",
			setupMocks: func(repo *MockRepository) {
				repo.On("GetTransaction", mock.Anything, txnID).
					Return(purchaseTxn(txnID, accountID, 50), nil)
				repo.On("GetBalances", mock.Anything, accountID).Return(10, 30, nil)
			},
			eligible: false,
			reason:   RefundReasonCreditsSpent,
		},
		{
			name: "eligible purchase",
			setupMocks: func(repo *MockRepository) {
				repo.On("GetTransaction", mock.Anything, txnID).
					Return(purchaseTxn(txnID, accountID, 50), nil)
				repo.On("GetBalances", mock.Anything, accountID).Return(0, 50, nil)
			},
			eligible: true,
			reason:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			svc := NewService(repo, new(MockAccountStore), 10)
			eligible, reason, err := svc.CanRefund(context.Background(), txnID, accountID)

			assert.NoError(t, err)
			assert.Equal(t, tt.eligible, eligible)
			assert.Equal(t, tt.reason, reason)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_ProcessRefund(t *testing.T) {
	accountID := uuid.New()
	txnID := uuid.New()

	t.Run("successful refund reverses the purchase", func(t *testing.T) {
		original := purchaseTxn(txnID, accountID, 50)
		refundRow := &Transaction{
			ID:        uuid.New(),
			AccountID: accountID,
			Amount:    -50,
			TxType:    TxTypeRefund,
		}

		repo := new(MockRepository)
		repo.On("GetTransaction", mock.Anything, txnID).Return(original, nil)
		repo.On("GetBalances", mock.Anything, accountID).Return(5, 60, nil)
		repo.On("ProcessRefund", mock.Anything, original).Return(refundRow, nil)

		svc := NewService(repo, new(MockAccountStore), 10)
		result, err := svc.ProcessRefund(context.Background(), txnID, accountID)

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 50, result.RefundedAmount)
		assert.Equal(t, -50, result.Transaction.Amount)
		repo.AssertExpectations(t)
	})

	t.Run("ineligible refund short-circuits before the repository", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetTransaction", mock.Anything, txnID).Return(nil, nil)

		svc := NewService(repo, new(MockAccountStore), 10)
		result, err := svc.ProcessRefund(context.Background(), txnID, accountID)

		assert.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, RefundReasonNotFound, result.Message)
		repo.AssertNotCalled(t, "ProcessRefund")
	})

	t.Run("credits spent between check and commit", func(t *testing.T) {
		original := purchaseTxn(txnID, accountID, 50)

		repo := new(MockRepository)
		repo.On("GetTransaction", mock.Anything, txnID).Return(original, nil)
		repo.On("GetBalances", mock.Anything, accountID).Return(0, 50, nil)
		repo.On("ProcessRefund", mock.Anything, original).Return(nil, ErrCreditsSpent)

		svc := NewService(repo, new(MockAccountStore), 10)
		result, err := svc.ProcessRefund(context.Background(), txnID, accountID)

		assert.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, RefundReasonCreditsSpent, result.Message)
	})

	t.Run("double refund race resolves to already refunded", func(t *testing.T) {
		original := purchaseTxn(txnID, accountID, 50)

		repo := new(MockRepository)
		repo.On("GetTransaction", mock.Anything, txnID).Return(original, nil)
		repo.On("GetBalances", mock.Anything, accountID).Return(0, 50, nil)
		repo.On("ProcessRefund", mock.Anything, original).Return(nil, ErrAlreadyRefunded)

		svc := NewService(repo, new(MockAccountStore), 10)
		result, err := svc.ProcessRefund(context.Background(), txnID, accountID)

		assert.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, RefundReasonAlreadyRefunded, result.Message)
	})
}
