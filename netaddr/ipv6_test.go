package netaddr_test

import (
	"testing"

	"github.com/ymarkovitch/pcomn-go/netaddr"
)

func TestIPv6RoundTrip(t *testing.T) {
	cases := []string{
		"::",
		"::1",
		"2001:db8::1",
		"fe80::1:2:3:4",
		"1:2:3:4:5:6:7:8",
	}
	for _, text := range cases {
		addr, err := netaddr.ParseIPv6(text, netaddr.Strict)
		if err != nil {
			t.Fatalf("ParseIPv6(%q): %v", text, err)
		}
		if got := addr.String(); got != text {
			t.Errorf("round trip: parsed %q, formatted %q", text, got)
		}
	}
}

func TestIPv6CanonicalChoosesFirstLongestRun(t *testing.T) {
	// Two equal-length zero runs: groups are 0:1:0:0:1:0:0:1 ->
	// the first run (index 0, length 1) doesn't qualify (<2), the two
	// remaining runs at index 2 and 5 both have length 2: first wins.
	addr := netaddr.FromGroups([8]uint16{0, 1, 0, 0, 1, 0, 0, 1})
	got := addr.String()
	want := "0:1::1:0:0:1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIPv4MappedDetectionAndConversion(t *testing.T) {
	addr, err := netaddr.ParseIPv6("::ffff:1.2.3.4", netaddr.Strict)
	if err != nil {
		t.Fatalf("ParseIPv6: %v", err)
	}
	if !addr.IsIPv4Mapped() {
		t.Fatalf("expected IsIPv4Mapped")
	}
	v4, ok := addr.ToIPv4()
	if !ok {
		t.Fatalf("expected ToIPv4 ok")
	}
	if got, want := v4.String(), "1.2.3.4"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUnspecifiedDistinctFromMappedUnspecified(t *testing.T) {
	unspecified, _ := netaddr.ParseIPv6("::", netaddr.Strict)
	mappedZero, _ := netaddr.ParseIPv6("::ffff:0.0.0.0", netaddr.Strict)

	if !unspecified.IsUnspecified() {
		t.Errorf("expected :: to be unspecified")
	}
	if mappedZero.IsUnspecified() {
		t.Errorf("::ffff:0.0.0.0 must not be considered the unspecified address")
	}
	if unspecified == mappedZero {
		t.Errorf(":: and ::ffff:0.0.0.0 must be distinct bit patterns")
	}
}

func TestIPv6IgnoreDotDecRejectsTail(t *testing.T) {
	if _, err := netaddr.ParseIPv6("::1.2.3.4", netaddr.IgnoreDotDec); err == nil {
		t.Errorf("expected error rejecting dotted-decimal tail")
	}
}

func TestIPv6RejectsDoubleCompression(t *testing.T) {
	if _, err := netaddr.ParseIPv6("1::2::3", netaddr.Strict); err == nil {
		t.Errorf("expected error for two :: compressions")
	}
}

func TestIPv6RejectsOversizedGroup(t *testing.T) {
	if _, err := netaddr.ParseIPv6("1:22222:3::", netaddr.Strict); err == nil {
		t.Errorf("expected error for oversized group")
	}
}

func TestIPv6RejectsTrailingColon(t *testing.T) {
	if _, err := netaddr.ParseIPv6("1:2:3:", netaddr.Strict); err == nil {
		t.Errorf("expected error for trailing colon")
	}
}
