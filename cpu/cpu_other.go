//go:build !linux

package cpu

// defaultID has no getcpu(2) equivalent to call on this build target, so
// it falls back to a round-robin counter. This loses real affinity but
// preserves the contract that ID() always returns a value in
// [0, NumCPU()).
func defaultID() int {
	return roundRobinID()
}
