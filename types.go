package ddns

import (
	"fmt"
	"strings"
)

// RecordType is a DNS record type supported by the provider.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeLOC   RecordType = "LOC"
	TypeMX    RecordType = "MX"
	TypeNS    RecordType = "NS"
	TypeSPF   RecordType = "SPF"
	TypeSRV   RecordType = "SRV"
	TypeTXT   RecordType = "TXT"
)

// RecordTypes lists every record type that can be requested.
var RecordTypes = []RecordType{TypeA, TypeAAAA, TypeCNAME, TypeLOC, TypeMX, TypeNS, TypeSPF, TypeSRV, TypeTXT}

// ParseRecordType returns the RecordType named by s, ignoring case.
func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range RecordTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported record type %q", ErrConfig, s)
}

func (t RecordType) address() bool {
	return t == TypeA || t == TypeAAAA
}

// proxiable reports whether the provider's service mode applies to records of this type.
func (t RecordType) proxiable() bool {
	return t == TypeA || t == TypeAAAA || t == TypeCNAME
}

// ServiceMode is the provider-specific proxy flag of a record.
type ServiceMode uint8

const (
	ServiceModeOff ServiceMode = 0
	ServiceModeOn  ServiceMode = 1
)

// ParseServiceMode accepts "0" or "1".
func ParseServiceMode(s string) (ServiceMode, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return ServiceModeOff, nil
	case "1":
		return ServiceModeOn, nil
	}
	return 0, fmt.Errorf("%w: service mode must be 0 or 1; got %q", ErrConfig, s)
}

func (m ServiceMode) String() string {
	if m == ServiceModeOn {
		return "1"
	}
	return "0"
}
