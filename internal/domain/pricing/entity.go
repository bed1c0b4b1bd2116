package pricing

import (
	"time"

	"github.com/google/uuid"
)

// Bounds for credits_per_operation
const (
	MinCreditsPerOperation = 1
	MaxCreditsPerOperation = 100
)

// Well-known billable operation types
const (
	OpImageClassification = "image_classification"
	OpAIChat              = "ai_chat"
	OpLocationAnalysis    = "location_analysis"
	OpBulkClassification  = "bulk_classification"
	OpItemEnrichment      = "item_enrichment"
)

// defaultCosts is the built-in price table used when no active override
// exists. Unknown operation types cost DefaultCost.
var defaultCosts = map[string]int{
	OpImageClassification: 1,
	OpAIChat:              2,
	OpLocationAnalysis:    3,
	OpBulkClassification:  5,
	OpItemEnrichment:      2,
}

// DefaultCost is the fallback for operation types absent from the table
const DefaultCost = 1

// BuiltinCost returns the built-in cost for an operation type
func BuiltinCost(operationType string) int {
	if cost, ok := defaultCosts[operationType]; ok {
		return cost
	}
	return DefaultCost
}

// Entry is a per-operation pricing override
type Entry struct {
	ID                  uuid.UUID `db:"id"`
	OperationType       string    `db:"operation_type"`
	CreditsPerOperation int       `db:"credits_per_operation"`
	IsActive            bool      `db:"is_active"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// UpdateFields carries a partial pricing update; nil fields are preserved
type UpdateFields struct {
	CreditsPerOperation *int
	IsActive            *bool
}
