//go:build !linux

package prober

import (
	"errors"
	"net"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

func setDontFragment(conn *net.UDPConn, family types.Family) error {
	return errors.New("don't-fragment control is only supported on linux")
}
