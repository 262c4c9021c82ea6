package ddns

import (
	"context"
	"net/netip"
)

// Resolver looks up the addresses that should be published.
type Resolver interface {
	Resolve(context.Context) ([]netip.Addr, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(context.Context) ([]netip.Addr, error)

// Resolve implements ddns.Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) ([]netip.Addr, error) {
	return f(ctx)
}

// Provider is the part of a DNS provider's API needed to reconcile records in a zone.
//
// Implementations should return a *ProviderError when the provider rejects a call.
type Provider interface {
	// ListRecords returns every record in zone, in the order the provider reports them.
	ListRecords(ctx context.Context, zone string) ([]Record, error)
	CreateRecord(ctx context.Context, zone string, params RecordParams) (Record, error)
	EditRecord(ctx context.Context, zone string, id string, params RecordParams) (Record, error)
}

// Record is a snapshot of a DNS record as reported by the provider.
type Record struct {
	ID          string
	Name        string
	Type        RecordType
	Content     string
	ServiceMode ServiceMode
}

// RecordParams holds the fields sent when creating or editing a record.
type RecordParams struct {
	Type        RecordType
	Name        string
	Content     string
	ServiceMode ServiceMode
}
