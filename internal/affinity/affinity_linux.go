//go:build linux

// Package affinity pins the measurement process to a CPU so the probe
// schedule is not disturbed by migrations.
package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func Pin(cpu int) error {
	if cpu < 0 {
		return fmt.Errorf("cpu index must be >= 0, got %d", cpu)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("pin to cpu %d: %w", cpu, err)
	}
	return nil
}
