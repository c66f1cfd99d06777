//go:build !linux

// Package affinity pins the measurement process to a CPU so the probe
// schedule is not disturbed by migrations.
package affinity

import "errors"

func Pin(cpu int) error {
	return errors.New("cpu affinity is only supported on linux")
}
