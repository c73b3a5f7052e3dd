package netaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// IPv4Subnet is an IPv4 address together with a prefix length. The address
// is stored unmasked: the host bits are kept intact so SubnetAddr() can
// mask on demand rather than discarding information at construction time.
type IPv4Subnet struct {
	Addr      IPv4
	PrefixLen int
}

// NewIPv4Subnet validates prefix (0-32) and returns a subnet.
func NewIPv4Subnet(addr IPv4, prefix int) (IPv4Subnet, error) {
	if prefix < 0 || prefix > 32 {
		return IPv4Subnet{}, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
	return IPv4Subnet{Addr: addr, PrefixLen: prefix}, nil
}

// ParseIPv4Subnet parses "a.b.c.d/p" strictly; an IPv6 form is rejected.
func ParseIPv4Subnet(text string) (IPv4Subnet, error) {
	addrText, prefix, err := splitCIDR(text)
	if err != nil {
		return IPv4Subnet{}, err
	}
	addr, err := ParseIPv4(addrText, Strict)
	if err != nil {
		return IPv4Subnet{}, fmt.Errorf("%w: %q is not an IPv4 subnet", ErrWrongFamily, text)
	}
	return NewIPv4Subnet(addr, prefix)
}

// Netmask returns the netmask implied by PrefixLen.
func (s IPv4Subnet) Netmask() IPv4 {
	if s.PrefixLen == 0 {
		return 0
	}
	return IPv4(^uint32(0) << uint(32-s.PrefixLen))
}

// SubnetAddr returns Addr masked with Netmask().
func (s IPv4Subnet) SubnetAddr() IPv4 {
	return IPv4(uint32(s.Addr) & uint32(s.Netmask()))
}

// AddrRange returns the inclusive [first, last] address range of the subnet.
func (s IPv4Subnet) AddrRange() (first, last IPv4) {
	base := s.SubnetAddr()
	return base, IPv4(uint32(base) | ^uint32(s.Netmask()))
}

// Match reports whether addr belongs to the subnet: (addr & netmask) ==
// subnet_addr.
func (s IPv4Subnet) Match(addr IPv4) bool {
	return IPv4(uint32(addr)&uint32(s.Netmask())) == s.SubnetAddr()
}

// MatchIPv6 matches an IPv6 address against this IPv4 subnet, which is
// defined only via IPv4-mapped embedding: a non-mapped IPv6 address never
// matches.
func (s IPv4Subnet) MatchIPv6(addr IPv6) bool {
	v4, ok := addr.ToIPv4()
	return ok && addr.IsIPv4Mapped() && s.Match(v4)
}

// Less orders subnets lexicographically by (SubnetAddr, PrefixLen).
func (s IPv4Subnet) Less(other IPv4Subnet) bool {
	a, b := s.SubnetAddr(), other.SubnetAddr()
	if a != b {
		return a.Less(b)
	}
	return s.PrefixLen < other.PrefixLen
}

// String renders "subnet_addr/prefix" (the unmasked Addr is not shown, to
// match the canonical CIDR text form).
func (s IPv4Subnet) String() string {
	return fmt.Sprintf("%s/%d", s.SubnetAddr(), s.PrefixLen)
}

// IPv6Subnet is an IPv6 address together with a prefix length (0-128),
// with the same unmasked-storage convention as IPv4Subnet.
type IPv6Subnet struct {
	Addr      IPv6
	PrefixLen int
}

// NewIPv6Subnet validates prefix (0-128) and returns a subnet.
func NewIPv6Subnet(addr IPv6, prefix int) (IPv6Subnet, error) {
	if prefix < 0 || prefix > 128 {
		return IPv6Subnet{}, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
	return IPv6Subnet{Addr: addr, PrefixLen: prefix}, nil
}

// ParseIPv6Subnet parses "addr/p" strictly; an IPv4 form is rejected.
func ParseIPv6Subnet(text string) (IPv6Subnet, error) {
	addrText, prefix, err := splitCIDR(text)
	if err != nil {
		return IPv6Subnet{}, err
	}
	if prefix > 128 {
		return IPv6Subnet{}, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
	addr, err := ParseIPv6(addrText, Strict)
	if err != nil {
		return IPv6Subnet{}, fmt.Errorf("%w: %q is not an IPv6 subnet", ErrWrongFamily, text)
	}
	return NewIPv6Subnet(addr, prefix)
}

func (s IPv6Subnet) netmaskBytes() [16]byte {
	var m [16]byte
	full := s.PrefixLen / 8
	rem := s.PrefixLen % 8
	for i := 0; i < full; i++ {
		m[i] = 0xff
	}
	if full < 16 && rem > 0 {
		m[full] = byte(0xff << uint(8-rem))
	}
	return m
}

// SubnetAddr returns Addr masked with the subnet's netmask.
func (s IPv6Subnet) SubnetAddr() IPv6 {
	mask := s.netmaskBytes()
	var out IPv6
	for i := range out {
		out[i] = s.Addr[i] & mask[i]
	}
	return out
}

// AddrRange returns the inclusive [first, last] address range of the subnet.
func (s IPv6Subnet) AddrRange() (first, last IPv6) {
	mask := s.netmaskBytes()
	base := s.SubnetAddr()
	var top IPv6
	for i := range top {
		top[i] = base[i] | ^mask[i]
	}
	return base, top
}

// Match reports whether addr belongs to the subnet.
func (s IPv6Subnet) Match(addr IPv6) bool {
	mask := s.netmaskBytes()
	base := s.SubnetAddr()
	for i := range addr {
		if addr[i]&mask[i] != base[i] {
			return false
		}
	}
	return true
}

// MatchIPv4 matches an IPv4 host address against this IPv6 subnet, which
// requires the subnet's own address to be IPv4-mapped; otherwise it never
// matches an IPv4 host, per spec.
func (s IPv6Subnet) MatchIPv4(addr IPv4) bool {
	if !s.Addr.IsIPv4Mapped() {
		return false
	}
	return s.Match(FromIPv4Mapped(addr))
}

// Less orders subnets lexicographically by (SubnetAddr, PrefixLen).
func (s IPv6Subnet) Less(other IPv6Subnet) bool {
	a, b := s.SubnetAddr(), other.SubnetAddr()
	if a != b {
		return a.Less(b)
	}
	return s.PrefixLen < other.PrefixLen
}

// String renders "subnet_addr/prefix".
func (s IPv6Subnet) String() string {
	return fmt.Sprintf("%s/%d", s.SubnetAddr(), s.PrefixLen)
}

// splitCIDR splits "addr/prefix" text and parses the prefix as a
// non-negative integer; it does not validate the address family or the
// prefix's upper bound, which the caller does per family.
func splitCIDR(text string) (addr string, prefix int, err error) {
	idx := strings.LastIndexByte(text, '/')
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: %q: missing prefix length", ErrInvalidFormat, text)
	}
	addr = text[:idx]
	prefixText := text[idx+1:]
	p, convErr := strconv.Atoi(prefixText)
	if convErr != nil || p < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefixText)
	}
	return addr, p, nil
}
