package pack

import "errors"

var (
	// ErrNotFound is returned when a pack doesn't exist
	ErrNotFound = errors.New("credit pack not found")

	// ErrInactive is returned when a checkout targets a deactivated pack
	ErrInactive = errors.New("credit pack is not active")

	// ErrInvalidPack is returned on admin writes with non-positive credits or price
	ErrInvalidPack = errors.New("credits and price must be positive")

	// ErrNoFields is returned when an update carries nothing to change
	ErrNoFields = errors.New("no fields to update")

	ErrInternal = errors.New("internal error")
)
