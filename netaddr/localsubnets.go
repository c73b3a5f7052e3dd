package netaddr

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// LocalSubnets enumerates the host's own interface addresses, split by
// family, as subnets at the interface's configured prefix length. This
// lets a netsock.Server validate "bind address belongs to a local
// interface" without shelling out to external tools.
func LocalSubnets() (v4 []IPv4Subnet, v6 []IPv6Subnet, err error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, nil, fmt.Errorf("netaddr: listing links: %w", err)
	}

	for _, link := range links {
		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, nil, fmt.Errorf("netaddr: listing addresses of %s: %w", link.Attrs().Name, err)
		}
		for _, a := range addrs {
			ones, _ := a.IPNet.Mask.Size()
			if v4addr, ok := FromStdIP(a.IPNet.IP); ok && a.IPNet.IP.To4() != nil {
				sub, err := NewIPv4Subnet(v4addr, ones)
				if err != nil {
					continue
				}
				v4 = append(v4, sub)
				continue
			}
			if ip16 := a.IPNet.IP.To16(); ip16 != nil {
				sub, err := NewIPv6Subnet(stdIPToIPv6(ip16), ones)
				if err != nil {
					continue
				}
				v6 = append(v6, sub)
			}
		}
	}
	return v4, v6, nil
}

func stdIPToIPv6(ip net.IP) IPv6 {
	var a IPv6
	copy(a[:], ip.To16())
	return a
}
