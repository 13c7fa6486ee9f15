//go:build linux

package cpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// defaultID asks the kernel which CPU the calling thread is currently
// running on via the getcpu(2) system call. This can race a reschedule
// between the syscall and its use, which is fine: oplog only needs a
// CPU id that's stable for the duration of a single way-lock critical
// section, not true affinity.
func defaultID() int {
	var id, node uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&id)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return roundRobinID()
	}
	n := uint32(NumCPU())
	if n == 0 || id >= n {
		return roundRobinID()
	}
	return int(id)
}
