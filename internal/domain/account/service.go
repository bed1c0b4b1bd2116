package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidEmail = errors.New("invalid email")
)

// BonusGranter grants the one-time signup bonus. Implemented by the credit
// service; declared here to avoid an import cycle.
type BonusGranter interface {
	GrantSignupBonus(ctx context.Context, accountID uuid.UUID) error
}

// Service provisions accounts. Identity (passwords, sessions) lives in the
// external identity service; this only owns the billing-side account row.
type Service struct {
	repo  Repository
	bonus BonusGranter
}

// NewService creates account service
func NewService(repo Repository, bonus BonusGranter) *Service {
	return &Service{repo: repo, bonus: bonus}
}

// Provision creates the billing account row for a new tenant and grants the
// one-time signup bonus. The bonus is a single free_grant at signup; there is
// no recurring monthly refill.
func (s *Service) Provision(ctx context.Context, email string, role Role) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	acct := &Account{
		ID:    uuid.New(),
		Email: email,
		Role:  role,
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}

	if s.bonus != nil {
		if err := s.bonus.GrantSignupBonus(ctx, acct.ID); err != nil {
			// Account exists without its bonus; recoverable by an admin grant
			log.Error().Err(err).Str("account_id", acct.ID.String()).Msg("Failed to grant signup bonus")
		}
	}

	return acct, nil
}

// Get returns an account by id, nil when not found
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}
