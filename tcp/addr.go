// Package tcp is a non-blocking TCP facade built directly on raw Linux
// sockets, deliberately bypassing net.Conn and Go's internal netpoller:
// every suspension point in this package (Listener.Accept, Stream.Read,
// Stream.Write, Dial) cooperates exclusively with the kestrel package's
// reactor.
package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// resolveTCPAddr turns a "host:port" string into a raw socket address usable
// with Bind/Connect and its address family.
func resolveTCPAddr(address string) (unix.Sockaddr, int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, 0, fmt.Errorf("kestrel/tcp: resolve %q: %w", address, err)
	}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil || tcpAddr.IP == nil {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To16())
	return sa, unix.AF_INET6, nil
}

// sockaddrToAddr converts a raw socket address obtained from the kernel
// (Accept4, Getsockname, Getpeername) back into a *net.TCPAddr.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	default:
		return nil
	}
}
