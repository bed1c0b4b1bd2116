package credit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shelfwise/shelfwise-api/internal/domain/account"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetBalances(ctx context.Context, accountID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRepository) Deduct(ctx context.Context, accountID uuid.UUID, amount int, description string) (*Transaction, error) {
	args := m.Called(ctx, accountID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) Add(ctx context.Context, accountID uuid.UUID, amount int, txType TxType, description string, opts AddOptions) (*Transaction, error) {
	args := m.Called(ctx, accountID, amount, txType, description, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) ProcessRefund(ctx context.Context, original *Transaction) (*Transaction, error) {
	args := m.Called(ctx, original)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, pagination Pagination) ([]Transaction, error) {
	args := m.Called(ctx, accountID, pagination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

// MockAccountStore is a mock implementation of AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func memberAccount(id uuid.UUID, free, purchased int) *account.Account {
	return &account.Account{
		ID:               id,
		Email:            "member@example.com",
		Role:             account.RoleMember,
		FreeCredits:      free,
		PurchasedCredits: purchased,
	}
}

func adminAccount(id uuid.UUID) *account.Account {
	return &account.Account{
		ID:    id,
		Email: "admin@example.com",
		Role:  account.RoleAdmin,
	}
}

func TestService_Deduct(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name       string
		amount     int
		setupMocks func(*MockRepository, *MockAccountStore)
		check      func(*testing.T, *DeductResult, error)
	}{
		{
			name:   "amount below one is rejected as a result",
			amount: 0,
			setupMocks: func(repo *MockRepository, accounts *MockAccountStore) {
			},
			check: func(t *testing.T, result *DeductResult, err error) {
				assert.NoError(t, err)
				assert.False(t, result.Deducted)
				assert.Equal(t, "amount must be at least 1", result.Reason)
			},
		},
		{
			name:   "unknown account is a no-op result",
			amount: 5,
			setupMocks: func(repo *MockRepository, accounts *MockAccountStore) {
				accounts.On("GetByID", mock.Anything, accountID).Return(nil, nil)
			},
			check: func(t *testing.T, result *DeductResult, err error) {
				assert.NoError(t, err)
				assert.False(t, result.Deducted)
				assert.Equal(t, "account not found", result.Reason)
			},
		},
		{
			name:   "admin bypass deducts nothing",
			amount: 5,
			setupMocks: func(repo *MockRepository, accounts *MockAccountStore) {
				accounts.On("GetByID", mock.Anything, accountID).Return(adminAccount(accountID), nil)
			},
			check: func(t *testing.T, result *DeductResult, err error) {
				assert.NoError(t, err)
				assert.True(t, result.Deducted)
				assert.True(t, result.Bypassed)
				assert.Nil(t, result.Transaction)
			},
		},
		{
			name:   "insufficient credits is a result, not an error",
			amount: 50,
			setupMocks: func(repo *MockRepository, accounts *MockAccountStore) {
				accounts.On("GetByID", mock.Anything, accountID).Return(memberAccount(accountID, 3, 5), nil)
				repo.On("Deduct", mock.Anything, accountID, 50, "bulk run").Return(nil, ErrInsufficientCredits)
			},
			check: func(t *testing.T, result *DeductResult, err error) {
				assert.NoError(t, err)
				assert.False(t, result.Deducted)
				assert.Equal(t, "insufficient credits", result.Reason)
			},
		},
		{
			name:   "successful deduction returns the usage row",
			amount: 2,
			setupMocks: func(repo *MockRepository, accounts *MockAccountStore) {
				accounts.On("GetByID", mock.Anything, accountID).Return(memberAccount(accountID, 3, 5), nil)
				repo.On("Deduct", mock.Anything, accountID, 2, "bulk run").Return(&Transaction{
					ID:        uuid.New(),
					AccountID: accountID,
					Amount:    -2,
					TxType:    TxTypeUsage,
				}, nil)
			},
			check: func(t *testing.T, result *DeductResult, err error) {
				assert.NoError(t, err)
				assert.True(t, result.Deducted)
				assert.False(t, result.Bypassed)
				assert.NotNil(t, result.Transaction)
				assert.Equal(t, -2, result.Transaction.Amount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			accounts := new(MockAccountStore)
			tt.setupMocks(repo, accounts)

			svc := NewService(repo, accounts, 10)
			result, err := svc.Deduct(context.Background(), accountID, "bulk run", tt.amount)
			tt.check(t, result, err)

			repo.AssertExpectations(t)
			accounts.AssertExpectations(t)
		})
	}
}

func TestService_HasCredits(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name     string
		amount   int
		acct     *account.Account
		expected bool
	}{
		{"admin always has credits", 1000, adminAccount(accountID), true},
		{"member with enough total", 7, memberAccount(accountID, 3, 5), true},
		{"member short on credits", 9, memberAccount(accountID, 3, 5), false},
		{"unknown account", 1, nil, false},
		{"zero amount checked as one", 0, memberAccount(accountID, 1, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			accounts := new(MockAccountStore)
			if tt.acct == nil {
				accounts.On("GetByID", mock.Anything, accountID).Return(nil, nil)
			} else {
				accounts.On("GetByID", mock.Anything, accountID).Return(tt.acct, nil)
			}

			svc := NewService(repo, accounts, 10)
			ok, err := svc.HasCredits(context.Background(), accountID, tt.amount)

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestService_GetBalance(t *testing.T) {
	accountID := uuid.New()

	repo := new(MockRepository)
	accounts := new(MockAccountStore)
	repo.On("GetBalances", mock.Anything, accountID).Return(3, 12, nil)

	svc := NewService(repo, accounts, 10)
	balance, err := svc.GetBalance(context.Background(), accountID)

	assert.NoError(t, err)
	assert.Equal(t, Balance{Free: 3, Purchased: 12, Total: 15}, balance)
}

func TestService_AddCredits(t *testing.T) {
	accountID := uuid.New()

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockAccountStore), 10)

		_, err := svc.AddCredits(context.Background(), accountID, 0, TxTypePurchase, "x", AddOptions{})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects usage and refund types", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockAccountStore), 10)

		_, err := svc.AddCredits(context.Background(), accountID, 5, TxTypeUsage, "x", AddOptions{})
		assert.ErrorIs(t, err, ErrInvalidTxType)

		_, err = svc.AddCredits(context.Background(), accountID, 5, TxTypeRefund, "x", AddOptions{})
		assert.ErrorIs(t, err, ErrInvalidTxType)
	})

	t.Run("propagates duplicate session references", func(t *testing.T) {
		repo := new(MockRepository)
		opts := AddOptions{SessionID: "cs_test_123"}
		repo.On("Add", mock.Anything, accountID, 50, TxTypePurchase, "pack", opts).
			Return(nil, ErrDuplicateReference)

		svc := NewService(repo, new(MockAccountStore), 10)
		_, err := svc.AddCredits(context.Background(), accountID, 50, TxTypePurchase, "pack", opts)

		assert.ErrorIs(t, err, ErrDuplicateReference)
		repo.AssertExpectations(t)
	})

	t.Run("purchase goes through the repository", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Add", mock.Anything, accountID, 50, TxTypePurchase, "pack", AddOptions{}).
			Return(&Transaction{ID: uuid.New(), AccountID: accountID, Amount: 50, TxType: TxTypePurchase}, nil)

		svc := NewService(repo, new(MockAccountStore), 10)
		txn, err := svc.AddCredits(context.Background(), accountID, 50, TxTypePurchase, "pack", AddOptions{})

		assert.NoError(t, err)
		assert.Equal(t, 50, txn.Amount)
		repo.AssertExpectations(t)
	})
}

func TestService_GrantSignupBonus(t *testing.T) {
	accountID := uuid.New()

	t.Run("grants configured amount to the free bucket", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Add", mock.Anything, accountID, 10, TxTypeSignupBonus, "signup bonus", AddOptions{}).
			Return(&Transaction{ID: uuid.New(), Amount: 10, TxType: TxTypeSignupBonus}, nil)

		svc := NewService(repo, new(MockAccountStore), 10)
		err := svc.GrantSignupBonus(context.Background(), accountID)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("zero bonus is a no-op", func(t *testing.T) {
		repo := new(MockRepository)

		svc := NewService(repo, new(MockAccountStore), 0)
		err := svc.GrantSignupBonus(context.Background(), accountID)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Add")
	})
}

func TestService_ListTransactions(t *testing.T) {
	accountID := uuid.New()

	repo := new(MockRepository)
	repo.On("ListTransactions", mock.Anything, accountID, Pagination{Limit: 20, Offset: 0}).
		Return([]Transaction{}, nil)

	svc := NewService(repo, new(MockAccountStore), 10)
	_, err := svc.ListTransactions(context.Background(), accountID, 0, 0)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Deduct_RepoErrorPropagates(t *testing.T) {
	accountID := uuid.New()
	boom := errors.New("connection reset")

	repo := new(MockRepository)
	accounts := new(MockAccountStore)
	accounts.On("GetByID", mock.Anything, accountID).Return(memberAccount(accountID, 10, 0), nil)
	repo.On("Deduct", mock.Anything, accountID, 1, "op").Return(nil, boom)

	svc := NewService(repo, accounts, 10)
	result, err := svc.Deduct(context.Background(), accountID, "op", 1)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}
