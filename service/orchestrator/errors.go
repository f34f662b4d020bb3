package orchestrator

import "errors"

// ErrInvalidState is returned when an operation is attempted against a
// session whose status does not accept it, e.g. advancing a session that is
// not awaiting a user answer or resuming a terminal one.
var ErrInvalidState = errors.New("orchestrator: invalid session state")
