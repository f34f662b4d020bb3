// Package clock supplies the timestamps stamped onto sessions, step records
// and escalations. Times are normalised to UTC so persisted records compare
// equal after a JSON round trip regardless of host timezone.
package clock

import "time"

// NowFunc produces the current time. Tests override it for determinism.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Now returns the current UTC time via NowFunc.
func Now() time.Time { return NowFunc() }
