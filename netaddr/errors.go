// Package netaddr implements the dual-stack IPv4/IPv6 address model: value
// types for addresses, subnets, and socket addresses, with strict parsers
// and CIDR-based subnet matching.
package netaddr

import "errors"

// ErrInvalidFormat is returned when a textual address or subnet
// representation does not parse under the requested mode. The offending
// fragment is included in the wrapped message.
var ErrInvalidFormat = errors.New("netaddr: invalid string representation")

// ErrInvalidPrefix is returned when a subnet prefix length falls outside
// the valid range for its address family (0-32 for IPv4, 0-128 for IPv6).
var ErrInvalidPrefix = errors.New("netaddr: invalid prefix length")

// ErrWrongFamily is returned when a CIDR text form names the wrong address
// family for the parser it was given to (e.g. "1.2.3.4/8" given to the
// IPv6 subnet parser).
var ErrWrongFamily = errors.New("netaddr: wrong address family for this parser")
