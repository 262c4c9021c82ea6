package ddns_test

import (
	"errors"
	"testing"

	"github.com/Travis-Britz/cfddns"
)

func TestFQDN(t *testing.T) {
	tests := []struct {
		sub, zone, want string
	}{
		{"home", "example.com", "home.example.com"},
		{"", "example.com", "example.com"},
		{"example.com", "example.com", "example.com"},
		{"home.example.com", "example.com", "home.example.com"},
		{"home.example.com.", "example.com", "home.example.com"},
		{"Home.Example.COM", "example.com", "Home.Example.COM"},
		{"a.b", "example.com", "a.b.example.com"},
		{"notexample.com", "example.com", "notexample.com.example.com"},
	}
	for _, tt := range tests {
		if got := ddns.FQDN(tt.sub, tt.zone); got != tt.want {
			t.Errorf("FQDN(%q, %q): expected %q; got %q", tt.sub, tt.zone, tt.want, got)
		}
	}
}

func TestNewTargetsInfersTypes(t *testing.T) {
	targets, err := ddns.NewTargets("home.example.com", []string{"203.0.113.9", "2001:db8::9"}, "", ddns.ServiceModeOff)
	if err != nil {
		t.Fatalf("NewTargets failed: %s", err)
	}
	if len(targets) != 2 {
		t.Fatalf("Expected 2 targets; got %d", len(targets))
	}
	if targets[0].Type != ddns.TypeA || targets[1].Type != ddns.TypeAAAA {
		t.Fatalf("Expected A then AAAA; got %s then %s", targets[0].Type, targets[1].Type)
	}
}

func TestNewTargetsMismatch(t *testing.T) {
	_, err := ddns.NewTargets("home.example.com", []string{"203.0.113.9"}, ddns.TypeAAAA, ddns.ServiceModeOff)
	var ve *ddns.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected a *ddns.ValidationError; got %v", err)
	}
	if ve.Error() != "203.0.113.9 is an IPv4 address; use record type A" {
		t.Fatalf("Unexpected message %q", ve.Error())
	}
}

func TestNewTargetsRejectsWholeSet(t *testing.T) {
	// the second value fails, so nothing may be reconciled
	targets, err := ddns.NewTargets("home.example.com", []string{"203.0.113.9", "2001:db8::9"}, ddns.TypeA, ddns.ServiceModeOff)
	if err == nil {
		t.Fatalf("Expected an error; got targets %+v", targets)
	}
	if targets != nil {
		t.Fatalf("Expected no targets; got %+v", targets)
	}
}

func TestNewTargetsUninferable(t *testing.T) {
	_, err := ddns.NewTargets("home.example.com", []string{"not-an-ip"}, "", ddns.ServiceModeOff)
	var ve *ddns.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected a *ddns.ValidationError; got %v", err)
	}
	if _, err := ddns.NewTargets("home.example.com", []string{"example.net"}, ddns.TypeCNAME, ddns.ServiceModeOff); err != nil {
		t.Fatalf("Expected an explicit CNAME to be accepted; got %s", err)
	}
}

func TestNewTargetsDuplicates(t *testing.T) {
	targets, err := ddns.NewTargets("home.example.com", []string{"203.0.113.9", "203.0.113.9"}, "", ddns.ServiceModeOff)
	if err != nil || len(targets) != 1 {
		t.Fatalf("Expected repeated values to collapse; got %+v, %v", targets, err)
	}
	_, err = ddns.NewTargets("home.example.com", []string{"203.0.113.9", "203.0.113.10"}, "", ddns.ServiceModeOff)
	if !errors.Is(err, ddns.ErrConfig) {
		t.Fatalf("Expected ErrConfig for two A values; got %v", err)
	}
}
