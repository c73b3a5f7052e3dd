package netaddr

// ParseMode controls how the strict grammar of an address parser is relaxed.
// The zero value is the strictest mode for each family.
type ParseMode uint

const (
	// Strict requires a well-formed literal and nothing else.
	Strict ParseMode = 0

	// AllowEmpty makes an empty input string parse as the all-zeros
	// (unspecified) address instead of failing. IPv4 only.
	AllowEmpty ParseMode = 1 << iota

	// UseHostname falls back to a DNS lookup when the input is not a
	// literal address. A valid literal is still returned without
	// resolving. IPv4 only.
	UseHostname

	// IgnoreDotDec rejects an embedded dotted-decimal IPv4 tail in an
	// IPv6 literal (e.g. "::1.2.3.4") instead of accepting it. IPv6 only.
	IgnoreDotDec
)

func (m ParseMode) has(flag ParseMode) bool { return m&flag != 0 }
