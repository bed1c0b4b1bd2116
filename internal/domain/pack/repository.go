package pack

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides credit pack access
type Repository interface {
	ListActive(ctx context.Context) ([]CreditPack, error)
	List(ctx context.Context) ([]CreditPack, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CreditPack, error)
	Create(ctx context.Context, p *CreditPack) error
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*CreditPack, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PackRepository implements Repository on Postgres
type PackRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PackRepository {
	return &PackRepository{db: db}
}

const packColumns = `id, name, credits, price_cents, stripe_price_id, is_active, sort_order, created_at, updated_at`

// ListActive returns active packs in display order
func (r *PackRepository) ListActive(ctx context.Context) ([]CreditPack, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	packs := make([]CreditPack, 0)
	err := r.db.SelectContext(ctx2, &packs, fmt.Sprintf(`
		SELECT %s FROM credit_packs
		WHERE is_active = TRUE
		ORDER BY sort_order, created_at
	`, packColumns))
	if err != nil {
		return nil, fmt.Errorf("%w: list active packs", ErrInternal)
	}

	return packs, nil
}

// List returns all packs for the admin surface
func (r *PackRepository) List(ctx context.Context) ([]CreditPack, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	packs := make([]CreditPack, 0)
	err := r.db.SelectContext(ctx2, &packs, fmt.Sprintf(`
		SELECT %s FROM credit_packs
		ORDER BY sort_order, created_at
	`, packColumns))
	if err != nil {
		return nil, fmt.Errorf("%w: list packs", ErrInternal)
	}

	return packs, nil
}

// GetByID returns a pack, nil when not found
func (r *PackRepository) GetByID(ctx context.Context, id uuid.UUID) (*CreditPack, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p CreditPack
	err := r.db.GetContext(ctx2, &p, fmt.Sprintf(`SELECT %s FROM credit_packs WHERE id = $1`, packColumns), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get pack", ErrInternal)
	}

	return &p, nil
}

// Create inserts a new pack
func (r *PackRepository) Create(ctx context.Context, p *CreditPack) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO credit_packs (id, name, credits, price_cents, stripe_price_id, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Credits, p.PriceCents, p.StripePriceID, p.IsActive, p.SortOrder)
	if err != nil {
		return fmt.Errorf("%w: create pack", ErrInternal)
	}

	return nil
}

// Update applies a partial update and returns the updated pack
func (r *PackRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*CreditPack, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := ""
	args := make([]interface{}, 0, 7)
	args = append(args, id)
	idx := 2

	appendField := func(column string, value interface{}) {
		set += fmt.Sprintf(", %s = $%d", column, idx)
		args = append(args, value)
		idx++
	}

	if fields.Name != nil {
		appendField("name", *fields.Name)
	}
	if fields.Credits != nil {
		appendField("credits", *fields.Credits)
	}
	if fields.PriceCents != nil {
		appendField("price_cents", *fields.PriceCents)
	}
	if fields.StripePriceID != nil {
		appendField("stripe_price_id", *fields.StripePriceID)
	}
	if fields.IsActive != nil {
		appendField("is_active", *fields.IsActive)
	}
	if fields.SortOrder != nil {
		appendField("sort_order", *fields.SortOrder)
	}
	if set == "" {
		return nil, ErrNoFields
	}

	var p CreditPack
	query := fmt.Sprintf(`
		UPDATE credit_packs
		SET updated_at = NOW()%s
		WHERE id = $1
		RETURNING %s
	`, set, packColumns)
	err := r.db.QueryRowxContext(ctx2, query, args...).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: update pack", ErrInternal)
	}

	return &p, nil
}

// Deactivate soft-deletes a pack
func (r *PackRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE credit_packs SET is_active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: deactivate pack", ErrInternal)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}

	return nil
}
