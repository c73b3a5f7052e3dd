package netaddr

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// cidrRow is one row of an operator-supplied CIDR allow/deny list.
type cidrRow struct {
	CIDR  string `csv:"cidr"`
	Label string `csv:"label"`
}

// ParseCIDRList reads an IPv4 CIDR table (columns "cidr", "label") from r
// and returns the parsed subnets in row order. A malformed CIDR fails the
// whole load rather than silently dropping rows.
func ParseCIDRList(r io.Reader) ([]IPv4Subnet, error) {
	var rows []cidrRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("netaddr: parsing CIDR list: %w", err)
	}
	out := make([]IPv4Subnet, 0, len(rows))
	for _, row := range rows {
		sub, err := ParseIPv4Subnet(row.CIDR)
		if err != nil {
			return nil, fmt.Errorf("netaddr: row %q: %w", row.CIDR, err)
		}
		out = append(out, sub)
	}
	return out, nil
}
