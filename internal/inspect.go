package internal

import (
	"net"
	"strconv"

	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/proxy"
)

// inspectAndCapture is the proxy.Inspector this Controller installs
// when packet capture is enabled: every bridged command is written to
// the pcap sink as a synthetic segment between the bridge's two real
// endpoint addresses, then forwarded unchanged. It never vetoes or
// rewrites a command; capture is purely observational.
func (c *Controller) inspectAndCapture(ls *proxy.LinkedSession, dir proxy.Direction, cmd frame.Command) (frame.Command, bool) {
	src, dst := ls.ClientChannel.RemoteAddr(), ls.RemoteChannel.RemoteAddr()
	if dir == proxy.ToClient {
		src, dst = dst, src
	}

	if err := c.capture.Write(portOf(src), portOf(dst), cmd.Body); err != nil {
		c.logger.WithError(err).Warn("controller: packet capture write failed")
	}
	return cmd, true
}

func portOf(addr string) uint16 {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(p)
}
