// Package idgen issues the identifiers for sessions and escalation records.
// Identifiers are opaque strings; the prefixes only make logs and the
// operator surface easier to read.
package idgen

import "github.com/google/uuid"

// NewFunc produces a raw unique identifier. Tests override it for
// determinism.
var NewFunc = func() string { return uuid.New().String() }

// NewSessionID returns an identifier for a new application session.
func NewSessionID() string { return "app-" + NewFunc() }

// NewEscalationID returns an identifier for a new escalation record.
func NewEscalationID() string { return "esc-" + NewFunc() }
