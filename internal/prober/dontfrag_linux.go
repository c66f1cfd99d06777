//go:build linux

package prober

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// setDontFragment enables strict path MTU discovery so the kernel sets the DF
// bit and refuses to fragment probe packets locally.
func setDontFragment(conn *net.UDPConn, family types.Family) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if family == types.FamilyIPv6 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_MTU_DISCOVER, unix.IPV6_PMTUDISC_DO)
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, unix.IP_PMTUDISC_DO)
	})
	if err != nil {
		return err
	}
	return sockErr
}
