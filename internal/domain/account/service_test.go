package account

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, acct *Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	args := m.Called(ctx, id, customerID)
	return args.Error(0)
}

// MockBonusGranter is a mock implementation of BonusGranter
type MockBonusGranter struct {
	mock.Mock
}

func (m *MockBonusGranter) GrantSignupBonus(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func TestService_Provision(t *testing.T) {
	t.Run("creates account and grants signup bonus", func(t *testing.T) {
		repo := new(MockRepository)
		bonus := new(MockBonusGranter)

		repo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		bonus.On("GrantSignupBonus", mock.Anything, mock.Anything).Return(nil)

		svc := NewService(repo, bonus)
		acct, err := svc.Provision(context.Background(), "New@Example.com ", RoleMember)

		assert.NoError(t, err)
		assert.Equal(t, "new@example.com", acct.Email)
		assert.Equal(t, RoleMember, acct.Role)
		repo.AssertExpectations(t)
		bonus.AssertExpectations(t)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByEmail", mock.Anything, "taken@example.com").
			Return(&Account{ID: uuid.New(), Email: "taken@example.com"}, nil)

		svc := NewService(repo, new(MockBonusGranter))
		_, err := svc.Provision(context.Background(), "taken@example.com", RoleMember)

		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("invalid email rejected before any lookup", func(t *testing.T) {
		repo := new(MockRepository)

		svc := NewService(repo, new(MockBonusGranter))
		_, err := svc.Provision(context.Background(), "not-an-email", RoleMember)

		assert.ErrorIs(t, err, ErrInvalidEmail)
		repo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("bonus failure does not fail provisioning", func(t *testing.T) {
		repo := new(MockRepository)
		bonus := new(MockBonusGranter)

		repo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		bonus.On("GrantSignupBonus", mock.Anything, mock.Anything).Return(errors.New("ledger down"))

		svc := NewService(repo, bonus)
		acct, err := svc.Provision(context.Background(), "new@example.com", RoleMember)

		assert.NoError(t, err)
		assert.NotNil(t, acct)
	})
}

func TestAccount_TotalCredits(t *testing.T) {
	acct := Account{FreeCredits: 3, PurchasedCredits: 12}
	assert.Equal(t, 15, acct.TotalCredits())
}

func TestAccount_IsAdmin(t *testing.T) {
	admin := Account{Role: RoleAdmin}
	member := Account{Role: RoleMember}
	assert.True(t, admin.IsAdmin())
	assert.False(t, member.IsAdmin())
}
