package pricing

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

// Repository provides pricing entry access
type Repository interface {
	GetActiveByOperation(ctx context.Context, operationType string) (*Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Entry, error)
}

// PricingRepository implements Repository on Postgres
type PricingRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetActiveByOperation returns the active override for an operation type,
// nil when none exists.
func (r *PricingRepository) GetActiveByOperation(ctx context.Context, operationType string) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entry Entry
	err := r.db.GetContext(ctx2, &entry, `
		SELECT id, operation_type, credits_per_operation, is_active, created_at, updated_at
		FROM operation_pricing
		WHERE operation_type = $1 AND is_active = TRUE
	`, operationType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get active pricing", ErrInternal)
	}

	return &entry, nil
}

// GetByID returns a pricing entry, nil when not found
func (r *PricingRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entry Entry
	err := r.db.GetContext(ctx2, &entry, `
		SELECT id, operation_type, credits_per_operation, is_active, created_at, updated_at
		FROM operation_pricing
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get pricing entry", ErrInternal)
	}

	return &entry, nil
}

// List returns all pricing entries ordered by operation type
func (r *PricingRepository) List(ctx context.Context) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT id, operation_type, credits_per_operation, is_active, created_at, updated_at
		FROM operation_pricing
		ORDER BY operation_type
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list pricing entries", ErrInternal)
	}

	return entries, nil
}

// Update applies a partial update and returns the updated entry.
func (r *PricingRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := ""
	args := make([]interface{}, 0, 3)
	args = append(args, id)
	idx := 2

	if fields.CreditsPerOperation != nil {
		set += fmt.Sprintf(", credits_per_operation = $%d", idx)
		args = append(args, *fields.CreditsPerOperation)
		idx++
	}
	if fields.IsActive != nil {
		set += fmt.Sprintf(", is_active = $%d", idx)
		args = append(args, *fields.IsActive)
		idx++
	}
	if set == "" {
		return nil, ErrNoFields
	}

	var entry Entry
	query := fmt.Sprintf(`
		UPDATE operation_pricing
		SET updated_at = NOW()%s
		WHERE id = $1
		RETURNING id, operation_type, credits_per_operation, is_active, created_at, updated_at
	`, set)
	err := r.db.QueryRowxContext(ctx2, query, args...).StructScan(&entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: update pricing entry", ErrInternal)
	}

	return &entry, nil
}
