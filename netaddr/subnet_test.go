package netaddr_test

import (
	"testing"

	"github.com/ymarkovitch/pcomn-go/netaddr"
)

func mustV4(t *testing.T, s string) netaddr.IPv4 {
	t.Helper()
	a, err := netaddr.ParseIPv4(s, netaddr.Strict)
	if err != nil {
		t.Fatalf("ParseIPv4(%q): %v", s, err)
	}
	return a
}

func TestIPv4SubnetMatch(t *testing.T) {
	sub, err := netaddr.ParseIPv4Subnet("172.16.1.0/12")
	if err != nil {
		t.Fatalf("ParseIPv4Subnet: %v", err)
	}
	if !sub.Match(mustV4(t, "172.16.1.20")) {
		t.Errorf("expected 172.16.1.20 to match 172.16.1.0/12")
	}
	if sub.Match(mustV4(t, "172.48.1.1")) {
		t.Errorf("expected 172.48.1.1 to NOT match 172.16.1.0/12")
	}
}

func TestIPv4SubnetMatchProperty(t *testing.T) {
	sub, err := netaddr.ParseIPv4Subnet("10.1.2.3/24")
	if err != nil {
		t.Fatalf("ParseIPv4Subnet: %v", err)
	}
	addrs := []string{"10.1.2.0", "10.1.2.255", "10.1.3.0", "9.1.2.5"}
	for _, text := range addrs {
		addr := mustV4(t, text)
		want := (addr.Uint32() & sub.Netmask().Uint32()) == sub.SubnetAddr().Uint32()
		if got := sub.Match(addr); got != want {
			t.Errorf("Match(%s) = %v, want %v", text, got, want)
		}
	}
}

func TestIPv4SubnetRejectsIPv6Text(t *testing.T) {
	if _, err := netaddr.ParseIPv4Subnet("::1/64"); err == nil {
		t.Errorf("expected error parsing IPv6 CIDR as IPv4 subnet")
	}
}

func TestIPv4MappedIPv6MatchedByIPv4Subnet(t *testing.T) {
	sub, err := netaddr.ParseIPv4Subnet("1.2.3.4/32")
	if err != nil {
		t.Fatalf("ParseIPv4Subnet: %v", err)
	}
	mapped, err := netaddr.ParseIPv6("::ffff:1.2.3.4", netaddr.Strict)
	if err != nil {
		t.Fatalf("ParseIPv6: %v", err)
	}
	if !sub.MatchIPv6(mapped) {
		t.Errorf("expected ::ffff:1.2.3.4 to match 1.2.3.4/32")
	}

	unmapped, err := netaddr.ParseIPv6("::1.2.3.4", netaddr.Strict)
	if err != nil {
		t.Fatalf("ParseIPv6: %v", err)
	}
	if sub.MatchIPv6(unmapped) {
		t.Errorf("expected ::1.2.3.4 (not IPv4-mapped) to NOT match 1.2.3.4/32")
	}
}

func TestIPv6SubnetRejectsIPv4Text(t *testing.T) {
	if _, err := netaddr.ParseIPv6Subnet("1.2.3.4/24"); err == nil {
		t.Errorf("expected error parsing IPv4 CIDR as IPv6 subnet")
	}
}

func TestIPv6SubnetMatch(t *testing.T) {
	sub, err := netaddr.ParseIPv6Subnet("2001:db8::/32")
	if err != nil {
		t.Fatalf("ParseIPv6Subnet: %v", err)
	}
	in, _ := netaddr.ParseIPv6("2001:db8:1:2::5", netaddr.Strict)
	out, _ := netaddr.ParseIPv6("2001:db9::1", netaddr.Strict)
	if !sub.Match(in) {
		t.Errorf("expected %s to match %s", in, sub)
	}
	if sub.Match(out) {
		t.Errorf("expected %s to NOT match %s", out, sub)
	}
}

func TestSubnetOrdering(t *testing.T) {
	a, _ := netaddr.ParseIPv4Subnet("10.0.0.0/8")
	b, _ := netaddr.ParseIPv4Subnet("10.0.0.0/16")
	if !a.Less(b) {
		t.Errorf("expected %s < %s", a, b)
	}
}

func TestIPv4SubnetPrefixOutOfRange(t *testing.T) {
	if _, err := netaddr.NewIPv4Subnet(mustV4(t, "1.2.3.4"), 33); err == nil {
		t.Errorf("expected error for out-of-range prefix")
	}
}
