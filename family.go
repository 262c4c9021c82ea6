package ddns

import (
	"fmt"
	"net/netip"
	"strings"
)

// Family is the address family of a candidate string.
type Family int

const (
	Neither Family = iota
	IPv4
	IPv6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return "neither"
}

// Classify reports whether candidate is a dotted-quad IPv4 literal, a colon-hex IPv6 literal, or neither.
//
// IPv4-mapped IPv6 literals such as "::ffff:192.0.2.1" are IPv6.
// Literals carrying a zone ("fe80::1%eth0") cannot be published and are neither.
func Classify(candidate string) Family {
	addr, err := netip.ParseAddr(candidate)
	if err != nil || addr.Zone() != "" {
		return Neither
	}
	if addr.Is4() {
		return IPv4
	}
	return IPv6
}

// InferType returns the record type implied by the address family of content.
func InferType(content string) (RecordType, error) {
	switch Classify(content) {
	case IPv4:
		return TypeA, nil
	case IPv6:
		return TypeAAAA, nil
	}
	return "", &ValidationError{
		Content: content,
		Reason:  fmt.Sprintf("cannot infer a record type for %q; it is neither an IPv4 nor an IPv6 address", content),
	}
}

// ValidateType checks that content can be published as a record of type t.
//
// A and AAAA records require an address of the matching family.
// Other types only require non-empty content.
func ValidateType(content string, t RecordType) error {
	invalid := func(format string, args ...any) error {
		return &ValidationError{Content: content, Type: t, Reason: fmt.Sprintf(format, args...)}
	}
	switch t {
	case TypeA:
		switch Classify(content) {
		case IPv4:
			return nil
		case IPv6:
			return invalid("%s is an IPv6 address; use record type AAAA", content)
		}
		return invalid("%s is not a valid IPv4 address", content)
	case TypeAAAA:
		switch Classify(content) {
		case IPv6:
			return nil
		case IPv4:
			return invalid("%s is an IPv4 address; use record type A", content)
		}
		return invalid("%s is not a valid IPv6 address", content)
	}
	if strings.TrimSpace(content) == "" {
		return invalid("content for a %s record cannot be empty", t)
	}
	return nil
}

// onePerFamily keeps the first IPv4 and the first IPv6 address of addrs, preserving order.
func onePerFamily(addrs []netip.Addr) (kept, dropped []netip.Addr) {
	var have4, have6 bool
	for _, a := range addrs {
		switch {
		case a.Is4() && !have4:
			have4 = true
		case !a.Is4() && !have6:
			have6 = true
		default:
			dropped = append(dropped, a)
			continue
		}
		kept = append(kept, a)
	}
	return kept, dropped
}

func filterFamily(addrs []netip.Addr, f Family) []netip.Addr {
	var out []netip.Addr
	for _, a := range addrs {
		if a.Is4() == (f == IPv4) {
			out = append(out, a)
		}
	}
	return out
}
