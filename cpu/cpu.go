// Package cpu answers "which logical CPU is the caller running on", the
// identification collaborator that oplog.LoggedObject's per-CPU cache is
// keyed by.
//
// There is no portable way for a hosted Go process to pin a goroutine to
// a CPU and keep it there, so ID is best-effort: it names the CPU the
// calling goroutine is probably on, which is good enough for oplog's
// purposes (the way lock still protects correctness if a goroutine
// migrates mid-critical-section; ID only affects which way gets used,
// not whether the protocol is correct).
package cpu

import (
	"runtime"
	"sync/atomic"
)

// Provider supplies a current logical CPU id in [0, NumCPU()) and the
// number of CPUs it is willing to report over. oplog.LoggedObject takes
// a Provider so tests can pin specific goroutines to specific fake CPUs
// deterministically.
type Provider interface {
	ID() int
	NumCPU() int
}

var numCPU = runtime.NumCPU()

// NumCPU returns the number of logical CPUs the default Provider reports
// over. Cached at package init, matching the host's NCPU constant from
// spec.
func NumCPU() int {
	return numCPU
}

// ID returns the calling goroutine's current logical CPU per the
// default Provider for this build target.
func ID() int {
	return defaultID()
}

// Default is the package-level Provider backed by ID/NumCPU.
var Default Provider = defaultProvider{}

type defaultProvider struct{}

func (defaultProvider) ID() int     { return ID() }
func (defaultProvider) NumCPU() int { return NumCPU() }

// roundRobin is the portable fallback used on build targets without a
// real getcpu(2). It does not track real affinity; it only guarantees
// that repeated calls cycle through [0, NumCPU()) so tests exercising
// multiple "CPUs" concurrently still spread across ways.
var roundRobin atomic.Uint64

func roundRobinID() int {
	n := uint64(NumCPU())
	if n == 0 {
		return 0
	}
	return int(roundRobin.Add(1) % n)
}
