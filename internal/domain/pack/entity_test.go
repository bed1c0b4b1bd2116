package pack

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRankByValue(t *testing.T) {
	starter := CreditPack{ID: uuid.New(), Name: "Starter", Credits: 50, PriceCents: 499}
	standard := CreditPack{ID: uuid.New(), Name: "Standard", Credits: 150, PriceCents: 1199}
	pro := CreditPack{ID: uuid.New(), Name: "Pro", Credits: 500, PriceCents: 2999}

	ranked := RankByValue([]CreditPack{starter, standard, pro})

	// Pro: 0.1667 credits/cent, Standard: 0.1251, Starter: 0.1002
	assert.Equal(t, "Pro", ranked[0].Name)
	assert.Equal(t, "Standard", ranked[1].Name)
	assert.Equal(t, "Starter", ranked[2].Name)
}

func TestRankByValue_DoesNotMutateInput(t *testing.T) {
	packs := []CreditPack{
		{Name: "Worst", Credits: 10, PriceCents: 1000},
		{Name: "Best", Credits: 100, PriceCents: 100},
	}

	RankByValue(packs)

	assert.Equal(t, "Worst", packs[0].Name)
}

func TestCreditsPerCent(t *testing.T) {
	p := CreditPack{Credits: 100, PriceCents: 200}
	assert.InDelta(t, 0.5, p.CreditsPerCent(), 1e-9)

	zero := CreditPack{Credits: 100, PriceCents: 0}
	assert.Equal(t, 0.0, zero.CreditsPerCent())
}
