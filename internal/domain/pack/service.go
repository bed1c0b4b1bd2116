package pack

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Service handles credit pack business logic
type Service struct {
	repo Repository
}

// NewService creates pack service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListActive returns active packs in display order
func (s *Service) ListActive(ctx context.Context) ([]CreditPack, error) {
	return s.repo.ListActive(ctx)
}

// ListByValue returns active packs ranked best value first
func (s *Service) ListByValue(ctx context.Context) ([]CreditPack, error) {
	packs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return RankByValue(packs), nil
}

// Get returns a pack by id, nil when not found
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CreditPack, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAll returns every pack for the admin surface
func (s *Service) ListAll(ctx context.Context) ([]CreditPack, error) {
	return s.repo.List(ctx)
}

// Create validates and inserts a new pack
func (s *Service) Create(ctx context.Context, name string, credits, priceCents int, stripePriceID string, sortOrder int) (*CreditPack, error) {
	if credits < 1 || priceCents < 1 {
		return nil, ErrInvalidPack
	}

	p := &CreditPack{
		ID:            uuid.New(),
		Name:          name,
		Credits:       credits,
		PriceCents:    priceCents,
		StripePriceID: sql.NullString{String: stripePriceID, Valid: stripePriceID != ""},
		IsActive:      true,
		SortOrder:     sortOrder,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Update validates and applies a partial update
func (s *Service) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*CreditPack, error) {
	if fields.Credits != nil && *fields.Credits < 1 {
		return nil, ErrInvalidPack
	}
	if fields.PriceCents != nil && *fields.PriceCents < 1 {
		return nil, ErrInvalidPack
	}

	return s.repo.Update(ctx, id, fields)
}

// Deactivate soft-deletes a pack
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}
