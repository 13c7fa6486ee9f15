package oplog

import "fmt"

// ProtocolViolation is the panic value raised when an internal
// invariant of the per-CPU logger cache or the sync protocol is
// observed to be broken: a tag mismatch during synchronize, a way
// observed untagged while its CPU bit is still set, a post-merge
// sequence that isn't monotonic. These indicate a bug in the core or
// its host and are never recovered at the public interface.
type ProtocolViolation struct {
	Op  string // which operation detected the violation
	CPU int    // the CPU whose way/state triggered it, or -1
	Msg string
}

func (e *ProtocolViolation) Error() string {
	if e.CPU >= 0 {
		return fmt.Sprintf("oplog: protocol violation in %s (cpu %d): %s", e.Op, e.CPU, e.Msg)
	}
	return fmt.Sprintf("oplog: protocol violation in %s: %s", e.Op, e.Msg)
}

func violatef(op string, cpu int, format string, args ...interface{}) {
	panic(&ProtocolViolation{Op: op, CPU: cpu, Msg: fmt.Sprintf(format, args...)})
}
