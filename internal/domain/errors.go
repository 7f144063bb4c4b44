package domain

import "errors"

// Error kinds returned by every economy operation. Callers match with errors.Is;
// operations wrap them with context via fmt.Errorf("%w: ...").
var (
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrStore                = errors.New("store error")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInsufficientResource, "insufficient_resource"},
	{ErrCapacityExceeded, "capacity_exceeded"},
	{ErrInvalidState, "invalid_state"},
	{ErrConflict, "conflict"},
	{ErrValidation, "validation_error"},
	{ErrNotFound, "not_found"},
	{ErrStore, "store_error"},
}

// KindOf returns the snake_case name of the error kind, or "" for nil and
// errors outside the known set.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// IsKnown reports whether err carries one of the domain error kinds.
func IsKnown(err error) bool {
	return KindOf(err) != ""
}
