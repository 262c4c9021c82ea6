package ddns

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks errors caused by missing or contradictory configuration.
	ErrConfig = errors.New("configuration error")

	// ErrNoAddress is returned when no address to publish could be determined.
	ErrNoAddress = errors.New("unable to determine the address to publish")
)

// ValidationError reports record content that cannot be published with the requested record type.
type ValidationError struct {
	Content string
	Type    RecordType
	Reason  string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ProviderError wraps a failed call to the DNS provider.
type ProviderError struct {
	Op   string // list, create or edit
	Zone string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed for zone %s: %s", e.Op, e.Zone, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// providerError wraps err in a *ProviderError unless a provider already did so.
func providerError(op, zone string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Zone: zone, Err: err}
}
