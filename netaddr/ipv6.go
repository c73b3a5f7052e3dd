package netaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// IPv6 is a 128-bit IPv6 address stored as 16 network-order bytes,
// addressable as eight 16-bit groups.
type IPv6 [16]byte

// ipv4MappedPrefix is the first 12 bytes of an IPv4-mapped IPv6 address:
// 80 zero bits followed by 0xFFFF.
var ipv4MappedPrefix = [12]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

// Group returns 16-bit group i (0 = most significant) in host order.
func (a IPv6) Group(i int) uint16 {
	return uint16(a[2*i])<<8 | uint16(a[2*i+1])
}

// FromGroups builds an address from eight host-order 16-bit groups.
func FromGroups(g [8]uint16) IPv6 {
	var a IPv6
	for i, v := range g {
		a[2*i] = byte(v >> 8)
		a[2*i+1] = byte(v)
	}
	return a
}

// IsIPv4Mapped reports whether a is of the form ::ffff:a.b.c.d: the first
// 80 bits are zero and the next 16 bits are 0xFFFF. The IPv6 unspecified
// address (all-zero) is distinct from this and returns false.
func (a IPv6) IsIPv4Mapped() bool {
	return [12]byte(a[:12]) == ipv4MappedPrefix
}

// ToIPv4 extracts the embedded IPv4 address of an IPv4-mapped address. If
// a is not IPv4-mapped, it returns the zero address and ok=false (never an
// error, per the address-model contract).
func (a IPv6) ToIPv4() (addr IPv4, ok bool) {
	if !a.IsIPv4Mapped() {
		return 0, false
	}
	return FromOctets(a[12], a[13], a[14], a[15]), true
}

// FromIPv4Mapped builds the IPv4-mapped IPv6 address ::ffff:a.b.c.d.
func FromIPv4Mapped(v4 IPv4) IPv6 {
	var a IPv6
	copy(a[:12], ipv4MappedPrefix[:])
	a[12], a[13], a[14], a[15] = v4.Octet(0), v4.Octet(1), v4.Octet(2), v4.Octet(3)
	return a
}

// IsUnspecified reports whether a is the all-zero address (distinct from
// the IPv4-mapped unspecified address ::ffff:0.0.0.0).
func (a IPv6) IsUnspecified() bool { return a == IPv6{} }

// Less orders addresses lexicographically over their bytes.
func (a IPv6) Less(b IPv6) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ParseIPv6 parses RFC 5952 textual form, including a single "::"
// compression and an optional embedded dotted-decimal IPv4 tail
// (::ffff:a.b.c.d). IgnoreDotDec rejects the dotted-decimal tail instead of
// accepting it.
func ParseIPv6(text string, mode ParseMode) (IPv6, error) {
	if text == "" {
		return IPv6{}, fmt.Errorf("%w: empty address", ErrInvalidFormat)
	}

	body := text
	var v4tail *IPv4
	if idx := strings.LastIndexByte(body, ':'); idx >= 0 && strings.ContainsRune(body[idx+1:], '.') {
		if mode.has(IgnoreDotDec) {
			return IPv6{}, fmt.Errorf("%w: %q: dotted-decimal tail not allowed", ErrInvalidFormat, text)
		}
		tail, err := ParseIPv4(body[idx+1:], Strict)
		if err != nil {
			return IPv6{}, fmt.Errorf("%w: %q: bad embedded IPv4 tail", ErrInvalidFormat, text)
		}
		v4tail = &tail
		body = body[:idx+1] + "0:0"
	}

	halves := strings.SplitN(body, "::", 3)
	switch len(halves) {
	case 1:
		groups, err := splitGroups(halves[0])
		if err != nil || len(groups) != 8 {
			return IPv6{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
		}
		return finishIPv6(groups, v4tail)

	case 2:
		left, err := splitGroupsAllowEmpty(halves[0])
		if err != nil {
			return IPv6{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
		}
		right, err := splitGroupsAllowEmpty(halves[1])
		if err != nil {
			return IPv6{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
		}
		fill := 8 - len(left) - len(right)
		if fill < 0 {
			return IPv6{}, fmt.Errorf("%w: %q: too many groups", ErrInvalidFormat, text)
		}
		groups := make([]uint16, 0, 8)
		groups = append(groups, left...)
		for i := 0; i < fill; i++ {
			groups = append(groups, 0)
		}
		groups = append(groups, right...)
		return finishIPv6(groups, v4tail)

	default:
		// Two or more "::" occurrences: at most one compression allowed.
		return IPv6{}, fmt.Errorf("%w: %q: multiple :: compressions", ErrInvalidFormat, text)
	}
}

func finishIPv6(groups []uint16, v4tail *IPv4) (IPv6, error) {
	var g [8]uint16
	copy(g[:], groups)
	a := FromGroups(g)
	if v4tail != nil {
		a[12], a[13], a[14], a[15] = v4tail.Octet(0), v4tail.Octet(1), v4tail.Octet(2), v4tail.Octet(3)
	}
	return a, nil
}

// splitGroups splits a fully-specified (no "::") 8-group body.
func splitGroups(s string) ([]uint16, error) {
	if s == "" {
		return nil, ErrInvalidFormat
	}
	parts := strings.Split(s, ":")
	groups := make([]uint16, len(parts))
	for i, p := range parts {
		v, err := parseGroup(p)
		if err != nil {
			return nil, err
		}
		groups[i] = v
	}
	return groups, nil
}

// splitGroupsAllowEmpty splits one side of a "::" compression, where an
// empty side (the "::" is at the very start or end) yields zero groups.
func splitGroupsAllowEmpty(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	return splitGroups(s)
}

func parseGroup(s string) (uint16, error) {
	if s == "" || len(s) > 4 {
		return 0, ErrInvalidFormat
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	return uint16(v), nil
}

// String renders RFC 5952 canonical form: lowercase hex groups, and the
// longest run of two-or-more zero groups compressed with "::" (the first
// such run wins on ties).
func (a IPv6) String() string {
	if v4, ok := a.ToIPv4(); ok && a.IsIPv4Mapped() {
		return "::ffff:" + v4.String()
	}

	var groups [8]uint16
	for i := range groups {
		groups[i] = a.Group(i)
	}

	start, length := longestZeroRun(groups[:])

	var b strings.Builder
	if length >= 2 {
		for i := 0; i < start; i++ {
			if i > 0 {
				b.WriteByte(':')
			}
			fmt.Fprintf(&b, "%x", groups[i])
		}
		b.WriteString("::")
		for i := start + length; i < 8; i++ {
			if i > start+length {
				b.WriteByte(':')
			}
			fmt.Fprintf(&b, "%x", groups[i])
		}
		return b.String()
	}

	for i, g := range groups {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%x", g)
	}
	return b.String()
}

// longestZeroRun finds the first-occurring longest run of consecutive
// zero groups, length >= 2 required by the caller to actually compress.
func longestZeroRun(groups []uint16) (start, length int) {
	bestStart, bestLen := -1, 0
	curStart, curLen := -1, 0
	for i, g := range groups {
		if g == 0 {
			if curStart < 0 {
				curStart = i
			}
			curLen++
			if curLen > bestLen {
				bestLen = curLen
				bestStart = curStart
			}
		} else {
			curStart, curLen = -1, 0
		}
	}
	if bestStart < 0 {
		return 0, 0
	}
	return bestStart, bestLen
}
