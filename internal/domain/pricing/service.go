package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheKeyPrefix = "pricing:cost:"
	cacheTTL       = 5 * time.Minute
)

// Service resolves per-operation credit costs. Active DB overrides win,
// then the built-in default table, never below 1 credit.
type Service struct {
	repo  Repository
	cache *redis.Client // optional, nil tolerated
}

// NewService creates pricing service
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// CostOf returns the credit cost for an operation type.
func (s *Service) CostOf(ctx context.Context, operationType string) (int, error) {
	if cost, ok := s.cachedCost(ctx, operationType); ok {
		return cost, nil
	}

	cost := BuiltinCost(operationType)

	entry, err := s.repo.GetActiveByOperation(ctx, operationType)
	if err != nil {
		return 0, err
	}
	if entry != nil {
		cost = entry.CreditsPerOperation
	}

	if cost < MinCreditsPerOperation {
		cost = MinCreditsPerOperation
	}

	s.storeCost(ctx, operationType, cost)
	return cost, nil
}

// UpdatePricing validates bounds, applies a partial update and drops the
// cached cost for the entry's operation type.
func (s *Service) UpdatePricing(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Entry, error) {
	if fields.CreditsPerOperation != nil {
		v := *fields.CreditsPerOperation
		if v < MinCreditsPerOperation || v > MaxCreditsPerOperation {
			return nil, fmt.Errorf("%w: got %d", ErrOutOfRange, v)
		}
	}

	entry, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entry.OperationType)
	return entry, nil
}

// List returns all pricing entries for the admin surface
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.repo.List(ctx)
}

func (s *Service) cachedCost(ctx context.Context, operationType string) (int, bool) {
	if s.cache == nil {
		return 0, false
	}

	raw, err := s.cache.Get(ctx, cacheKeyPrefix+operationType).Result()
	if err != nil {
		return 0, false
	}
	cost, err := strconv.Atoi(raw)
	if err != nil || cost < MinCreditsPerOperation {
		return 0, false
	}
	return cost, true
}

func (s *Service) storeCost(ctx context.Context, operationType string, cost int) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, cacheKeyPrefix+operationType, cost, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("operation_type", operationType).Msg("Failed to cache operation cost")
	}
}

func (s *Service) invalidate(ctx context.Context, operationType string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, cacheKeyPrefix+operationType).Err(); err != nil {
		log.Warn().Err(err).Str("operation_type", operationType).Msg("Failed to invalidate cached cost")
	}
}
