package netaddr

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IPv4 is a 32-bit IPv4 address, stored host-order internally. All other
// representations (octets, dotted-decimal text, net.IP) are derived from
// this single value, so they can never disagree with each other.
type IPv4 uint32

// FromOctets builds an address from four network-order octets
// (a is the most significant byte).
func FromOctets(a, b, c, d byte) IPv4 {
	return IPv4(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// FromUint32 builds an address from a single host-order 32-bit integer.
func FromUint32(v uint32) IPv4 { return IPv4(v) }

// FromStdIP converts a net.IP holding an IPv4 (or IPv4-in-IPv6) address.
// It reports ok=false if ip is not convertible to four bytes.
func FromStdIP(ip net.IP) (addr IPv4, ok bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return FromOctets(v4[0], v4[1], v4[2], v4[3]), true
}

// ParseIPv4 parses dotted-decimal text under mode. With Strict, the text
// must be exactly "d.d.d.d" with each octet in [0,255], no leading +/-,
// and no internal whitespace. AllowEmpty makes "" parse as 0.0.0.0.
// UseHostname resolves non-literal text via DNS; a valid dotted form is
// always returned directly, without ever touching the resolver.
func ParseIPv4(text string, mode ParseMode) (IPv4, error) {
	if text == "" {
		if mode.has(AllowEmpty) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: empty address", ErrInvalidFormat)
	}

	if addr, ok := parseDotDec(text); ok {
		return addr, nil
	}

	if mode.has(UseHostname) {
		ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip4", text)
		if err != nil || len(ips) == 0 {
			return 0, fmt.Errorf("%w: %q: lookup failed", ErrInvalidFormat, text)
		}
		addr, ok := FromStdIP(ips[0])
		if !ok {
			return 0, fmt.Errorf("%w: %q: resolved to non-IPv4 address", ErrInvalidFormat, text)
		}
		return addr, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
}

// parseDotDec parses a strict "d.d.d.d" literal with no surrounding
// whitespace, no signs, and octets that do not overflow a byte.
func parseDotDec(text string) (IPv4, bool) {
	parts := strings.Split(text, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var octets [4]byte
	for i, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return 0, false
		}
		octets[i] = byte(n)
	}
	return FromOctets(octets[0], octets[1], octets[2], octets[3]), true
}

// Octet returns byte i of the address in network order (0 = most
// significant).
func (a IPv4) Octet(i int) byte {
	return byte(uint32(a) >> uint(8*(3-i)))
}

// Uint32 returns the host-order 32-bit representation.
func (a IPv4) Uint32() uint32 { return uint32(a) }

// StdIP converts to a net.IP (4-byte form).
func (a IPv4) StdIP() net.IP {
	return net.IPv4(a.Octet(0), a.Octet(1), a.Octet(2), a.Octet(3)).To4()
}

// String renders the canonical dotted-decimal form.
func (a IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a.Octet(0), a.Octet(1), a.Octet(2), a.Octet(3))
}

// Less orders addresses by their unsigned 32-bit value.
func (a IPv4) Less(b IPv4) bool { return uint32(a) < uint32(b) }

// Hostname performs a reverse DNS lookup. It never fails: on any DNS
// error it falls back to the dotted-decimal form.
func (a IPv4) Hostname(ctx context.Context) string {
	names, err := net.DefaultResolver.LookupAddr(ctx, a.String())
	if err != nil || len(names) == 0 {
		return a.String()
	}
	return strings.TrimSuffix(names[0], ".")
}
