package pack

import (
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CreditPack is a purchasable credit bundle
type CreditPack struct {
	ID            uuid.UUID      `db:"id"`
	Name          string         `db:"name"`
	Credits       int            `db:"credits"`
	PriceCents    int            `db:"price_cents"`
	StripePriceID sql.NullString `db:"stripe_price_id"`
	IsActive      bool           `db:"is_active"`
	SortOrder     int            `db:"sort_order"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// CreditsPerCent is the value ratio packs are ranked by
func (p *CreditPack) CreditsPerCent() float64 {
	if p.PriceCents <= 0 {
		return 0
	}
	return float64(p.Credits) / float64(p.PriceCents)
}

// RankByValue returns a copy sorted best value first
func RankByValue(packs []CreditPack) []CreditPack {
	ranked := make([]CreditPack, len(packs))
	copy(ranked, packs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CreditsPerCent() > ranked[j].CreditsPerCent()
	})
	return ranked
}

// UpdateFields carries a partial pack update; nil fields are preserved
type UpdateFields struct {
	Name          *string
	Credits       *int
	PriceCents    *int
	StripePriceID *string
	IsActive      *bool
	SortOrder     *int
}
