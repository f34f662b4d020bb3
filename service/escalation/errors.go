package escalation

import "errors"

var (
	// ErrAlreadyResolved is returned when an operator attempts to resolve an
	// escalation that has already been resolved.
	ErrAlreadyResolved = errors.New("escalation: already resolved")

	// ErrStale is returned when the referenced session no longer points at
	// the escalation, e.g. after a newer escalation superseded it.
	ErrStale = errors.New("escalation: stale")
)
