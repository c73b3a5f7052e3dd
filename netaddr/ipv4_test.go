package netaddr_test

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/ymarkovitch/pcomn-go/netaddr"
)

func TestIPv4RoundTrip(t *testing.T) {
	cases := []string{"0.0.0.0", "127.0.0.1", "255.255.255.255", "172.16.1.20"}
	for _, text := range cases {
		addr, err := netaddr.ParseIPv4(text, netaddr.Strict)
		if err != nil {
			t.Fatalf("ParseIPv4(%q): %v", text, err)
		}
		if got := addr.String(); got != text {
			t.Errorf("round trip: got %q, want %q", got, text)
		}
	}
}

func TestIPv4StrictRejectsGarbage(t *testing.T) {
	bad := []string{"", "1.2.3", "1.2.3.4.5", "1.2.3.256", "01.2.3.4", "1.2.3.+4", " 1.2.3.4"}
	for _, text := range bad {
		if _, err := netaddr.ParseIPv4(text, netaddr.Strict); err == nil {
			t.Errorf("ParseIPv4(%q) under Strict: expected error, got none", text)
		}
	}
}

func TestIPv4AllowEmpty(t *testing.T) {
	addr, err := netaddr.ParseIPv4("", netaddr.AllowEmpty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != netaddr.FromUint32(0) {
		t.Errorf("got %v, want 0.0.0.0", addr)
	}
}

func TestIPv4UseHostnamePrefersLiteral(t *testing.T) {
	// A valid dotted form must be returned directly, without consulting
	// the resolver, even when UseHostname is requested.
	addr, err := netaddr.ParseIPv4("10.0.0.5", netaddr.UseHostname)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := netaddr.ParseIPv4("10.0.0.5", netaddr.Strict)
	if diff := deep.Equal(addr, want); diff != nil {
		t.Errorf("diff: %v", diff)
	}
}

func TestIPv4Octets(t *testing.T) {
	addr := netaddr.FromOctets(10, 20, 30, 40)
	for i, want := range []byte{10, 20, 30, 40} {
		if got := addr.Octet(i); got != want {
			t.Errorf("Octet(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestIPv4Ordering(t *testing.T) {
	a, _ := netaddr.ParseIPv4("1.2.3.4", netaddr.Strict)
	b, _ := netaddr.ParseIPv4("1.2.3.5", netaddr.Strict)
	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected a < b")
	}
}
