package ddns

import (
	"fmt"
	"strings"
)

// Target is the desired state of one record.
type Target struct {
	Name        string // fully-qualified
	Type        RecordType
	Content     string
	ServiceMode ServiceMode
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s %s", t.Name, t.Type, t.Content)
}

// FQDN combines subdomain with zone.
//
// An empty subdomain names the zone itself.
// A subdomain that already equals zone or ends in "."+zone is returned unchanged.
func FQDN(subdomain, zone string) string {
	subdomain = strings.TrimSuffix(strings.TrimSpace(subdomain), ".")
	zone = strings.TrimSuffix(strings.TrimSpace(zone), ".")
	switch {
	case subdomain == "":
		return zone
	case strings.EqualFold(subdomain, zone), hasSuffixFold(subdomain, "."+zone):
		return subdomain
	}
	return subdomain + "." + zone
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// NewTargets builds one Target per content value for the record name.
//
// When typ is empty the type is inferred from each value's address family.
// Every value is validated before any target is returned,
// so a single bad value fails the whole set.
// Repeated values are collapsed, and two different values may not share a record type.
func NewTargets(name string, contents []string, typ RecordType, mode ServiceMode) ([]Target, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: record name cannot be empty", ErrConfig)
	}
	if len(contents) == 0 {
		return nil, ErrNoAddress
	}
	var targets []Target
	byType := map[RecordType]string{}
	for _, c := range contents {
		c = strings.TrimSpace(c)
		t := typ
		if t == "" {
			var err error
			if t, err = InferType(c); err != nil {
				return nil, err
			}
		}
		if err := ValidateType(c, t); err != nil {
			return nil, err
		}
		if prev, found := byType[t]; found {
			if prev == c {
				continue
			}
			return nil, fmt.Errorf("%w: more than one %s value given for %s (%s and %s)", ErrConfig, t, name, prev, c)
		}
		byType[t] = c
		targets = append(targets, Target{Name: name, Type: t, Content: c, ServiceMode: mode})
	}
	return targets, nil
}
