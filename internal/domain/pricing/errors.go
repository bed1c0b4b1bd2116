package pricing

import "errors"

var (
	// ErrNotFound is returned when a pricing entry doesn't exist
	ErrNotFound = errors.New("pricing entry not found")

	// ErrOutOfRange is returned when credits_per_operation leaves [1, 100]
	ErrOutOfRange = errors.New("credits per operation must be between 1 and 100")

	// ErrNoFields is returned when an update carries nothing to change
	ErrNoFields = errors.New("no fields to update")

	ErrInternal = errors.New("internal error")
)
