package injector

import (
	"time"
)

// ResolveHook observes every top-level resolution.
type ResolveHook func(contract string, duration time.Duration, err error)

// RegisterHook observes every builder that becomes active, including open
// generic instantiations.
type RegisterHook func(contract string)

// DisposeHook observes every disposed instance.
type DisposeHook func(scopeID string, instance any, err error)
