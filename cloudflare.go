package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
)

const (
	// cloudflareTimeout applies to every call to the Cloudflare API.
	cloudflareTimeout = 30 * time.Second
	// autoTTL asks Cloudflare to pick the TTL.
	autoTTL = 1
)

// Credentials authenticate against the Cloudflare API.
//
// With an Email set, Key is a legacy global API key sent together with the account email.
// Otherwise Key is an API token.
type Credentials struct {
	Email string
	Key   string
}

// NewCloudflare constructs a Provider backed by the Cloudflare v4 API.
//
// Extra cloudflare-go options are applied after the defaults,
// so they can replace the HTTP client or point the client at another base URL.
func NewCloudflare(creds Credentials, opts ...cloudflare.Option) (*Cloudflare, error) {
	if creds.Key == "" {
		return nil, fmt.Errorf("%w: a Cloudflare API key or token is required", ErrConfig)
	}
	opts = append([]cloudflare.Option{
		cloudflare.HTTPClient(&http.Client{Timeout: cloudflareTimeout}),
		// failed calls are reported, never retried
		cloudflare.UsingRetryPolicy(0, 0, 0),
	}, opts...)

	var api *cloudflare.API
	var err error
	if creds.Email != "" {
		api, err = cloudflare.New(creds.Key, creds.Email, opts...)
	} else {
		api, err = cloudflare.NewWithAPIToken(creds.Key, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	return &Cloudflare{
		api:     api,
		legacy:  creds.Email != "",
		logger:  discard,
		comment: "managed by cf-ddns",
		zoneIDs: map[string]string{},
	}, nil
}

// Cloudflare implements ddns.Provider.
//
// It should be constructed using NewCloudflare.
type Cloudflare struct {
	api     *cloudflare.API
	legacy  bool
	logger  logrus.FieldLogger
	comment string // attached to each new DNS entry

	mu      sync.Mutex
	zoneIDs map[string]string // zone name to zone ID, filled on first use
}

func (cf *Cloudflare) SetLogger(logger logrus.FieldLogger) { cf.logger = logger }

func (cf *Cloudflare) SetHTTPClient(c *http.Client) {
	// HTTPClient never returns an error
	_ = cloudflare.HTTPClient(c)(cf.api)
}

// Verify checks that the credentials are accepted by Cloudflare.
func (cf *Cloudflare) Verify(ctx context.Context) error {
	if cf.legacy {
		if _, err := cf.api.UserDetails(ctx); err != nil {
			return &ProviderError{Op: "verify", Err: err}
		}
		return nil
	}
	result, err := cf.api.VerifyAPIToken(ctx)
	if err != nil {
		return &ProviderError{Op: "verify", Err: fmt.Errorf("unable to verify api token: %w", err)}
	}
	if result.Status != "active" {
		return &ProviderError{Op: "verify", Err: fmt.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)}
	}
	return nil
}

// ListRecords implements ddns.Provider.
func (cf *Cloudflare) ListRecords(ctx context.Context, zone string) ([]Record, error) {
	zid, err := cf.zoneID(zone)
	if err != nil {
		return nil, &ProviderError{Op: "list", Zone: zone, Err: err}
	}
	cf.logger.Debugf("looking up records for zone %s (%s)...", zone, zid)
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{})
	if err != nil {
		return nil, &ProviderError{Op: "list", Zone: zone, Err: err}
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, fromCloudflare(r))
	}
	return out, nil
}

// CreateRecord implements ddns.Provider.
func (cf *Cloudflare) CreateRecord(ctx context.Context, zone string, params RecordParams) (Record, error) {
	zid, err := cf.zoneID(zone)
	if err != nil {
		return Record{}, &ProviderError{Op: "create", Zone: zone, Err: err}
	}
	record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.CreateDNSRecordParams{
		Type:    string(params.Type),
		Name:    params.Name,
		Content: params.Content,
		ZoneID:  zid,
		TTL:     autoTTL,
		Proxied: proxied(params),
		Comment: cf.comment,
	})
	if err != nil {
		return Record{}, &ProviderError{Op: "create", Zone: zone, Err: err}
	}
	return fromCloudflare(record), nil
}

// EditRecord implements ddns.Provider.
func (cf *Cloudflare) EditRecord(ctx context.Context, zone string, id string, params RecordParams) (Record, error) {
	zid, err := cf.zoneID(zone)
	if err != nil {
		return Record{}, &ProviderError{Op: "edit", Zone: zone, Err: err}
	}
	record, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.UpdateDNSRecordParams{
		ID:      id,
		Type:    string(params.Type),
		Name:    params.Name,
		Content: params.Content,
		TTL:     autoTTL,
		Proxied: proxied(params),
	})
	if err != nil {
		return Record{}, &ProviderError{Op: "edit", Zone: zone, Err: err}
	}
	return fromCloudflare(record), nil
}

func (cf *Cloudflare) zoneID(zone string) (string, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if zid, found := cf.zoneIDs[zone]; found {
		return zid, nil
	}
	if zone == "" {
		return "", errors.New("zone name cannot be empty")
	}
	zid, err := cf.api.ZoneIDByName(zone)
	if err != nil {
		return "", fmt.Errorf("unable to get zone ID for %s: %w", zone, err)
	}
	cf.logger.Debugf("got zone ID: %s", zid)
	cf.zoneIDs[zone] = zid
	return zid, nil
}

// proxied returns the proxy flag to send, or nil for record types Cloudflare cannot proxy.
func proxied(params RecordParams) *bool {
	if !params.Type.proxiable() {
		return nil
	}
	on := params.ServiceMode == ServiceModeOn
	return &on
}

func fromCloudflare(r cloudflare.DNSRecord) Record {
	rec := Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    RecordType(r.Type),
		Content: r.Content,
	}
	if r.Proxied != nil && *r.Proxied {
		rec.ServiceMode = ServiceModeOn
	}
	return rec
}
