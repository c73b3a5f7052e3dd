package netaddr

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Family distinguishes the address carried by a SockAddr.
type Family int

const (
	// FamilyV4 marks a SockAddr carrying an IPv4 address.
	FamilyV4 Family = iota
	// FamilyV6 marks a SockAddr carrying an IPv6 address.
	FamilyV6
)

// SockAddr is an address (IPv4 or IPv6) together with a 16-bit port,
// convertible to the platform sockaddr family used by the netsock package.
type SockAddr struct {
	Family Family
	V4     IPv4
	V6     IPv6
	Port   uint16
}

// NewSockAddrV4 builds an IPv4 SockAddr.
func NewSockAddrV4(addr IPv4, port uint16) SockAddr {
	return SockAddr{Family: FamilyV4, V4: addr, Port: port}
}

// NewSockAddrV6 builds an IPv6 SockAddr.
func NewSockAddrV6(addr IPv6, port uint16) SockAddr {
	return SockAddr{Family: FamilyV6, V6: addr, Port: port}
}

// String renders "addr:port" ("[addr]:port" for IPv6).
func (s SockAddr) String() string {
	if s.Family == FamilyV6 {
		return fmt.Sprintf("[%s]:%d", s.V6, s.Port)
	}
	return fmt.Sprintf("%s:%d", s.V4, s.Port)
}

// ToSockaddr converts to the unix.Sockaddr used by raw socket syscalls.
func (s SockAddr) ToSockaddr() unix.Sockaddr {
	if s.Family == FamilyV6 {
		return &unix.SockaddrInet6{Port: int(s.Port), Addr: s.V6}
	}
	var addr [4]byte
	for i := 0; i < 4; i++ {
		addr[i] = s.V4.Octet(i)
	}
	return &unix.SockaddrInet4{Port: int(s.Port), Addr: addr}
}

// FromSockaddr converts a unix.Sockaddr (as returned by Accept/Getsockname)
// back into a SockAddr.
func FromSockaddr(sa unix.Sockaddr) (SockAddr, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return NewSockAddrV4(FromOctets(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), uint16(a.Port)), nil
	case *unix.SockaddrInet6:
		return NewSockAddrV6(IPv6(a.Addr), uint16(a.Port)), nil
	default:
		return SockAddr{}, fmt.Errorf("netaddr: unsupported sockaddr type %T", sa)
	}
}
