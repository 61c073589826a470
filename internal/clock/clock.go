// Package clock abstracts time so lifecycle rules and sweep jobs can be
// tested deterministically.
package clock

import (
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Module wires the system clock for production binaries.
var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
