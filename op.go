package oplog

import (
	"fmt"

	"github.com/CreditWorthy/oplog/internal/tsc"
)

// TSCReader supplies the timestamps TscLogger.Push stamps on each
// logged operation. Satisfied structurally by internal/tsc.Monotonic
// (the default) or by a host's own hardware-TSC reader.
type TSCReader interface {
	Now() uint64
}

var defaultTSCReader TSCReader = tsc.Default

// Op is a type-erased, runnable logged operation: the "runnable
// closure" of spec.md §3's operation record. Run applies the operation;
// Print is a debug-emit hook used by TscLogger.PrintOps.
type Op interface {
	Run()
	Print()
}

// OpFunc adapts a plain func() into an Op whose Print just names it.
// Most callers logging simple operations use this instead of defining a
// one-off type.
type OpFunc struct {
	Name string
	Fn   func()
}

// Run invokes the wrapped function.
func (o OpFunc) Run() {
	o.Fn()
}

// Print emits the operation's name via the package debug logger.
func (o OpFunc) Print() {
	debugf("op %s", o.Name)
}

// TimestampedOp is implemented by callers of PushWithTSC: an operation
// that already knows its own linearization timestamp (e.g. the point at
// which a filesystem operation actually took effect), rather than
// wanting one assigned at push time.
type TimestampedOp interface {
	Op
	TSC() uint64
}

type opRecord struct {
	tsc uint64
	op  Op
}

func (r opRecord) String() string {
	return fmt.Sprintf("op@%d", r.tsc)
}
