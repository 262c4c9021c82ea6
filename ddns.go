package ddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultResolver returns a WebResolver over DefaultServices.
func DefaultResolver() Resolver {
	return &webResolver{serviceURLs: mustParse(DefaultServices), logger: discard}
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// New constructs a Client for zone.
func New(zone string, options ...clientOption) (*Client, error) {
	if zone == "" {
		return nil, fmt.Errorf("%w: ddns.New: zone cannot be empty", ErrConfig)
	}
	c := &Client{
		Resolver: DefaultResolver(),
		zone:     zone,
		logger:   discard,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ddns.New: option %d returned an error: %w", i, err)
		}
	}

	if c.Provider == nil {
		return nil, fmt.Errorf("%w: ddns.New: no DNS provider was registered and there is no default option - use ddns.UsingCloudflare or similar", ErrConfig)
	}

	// this lets us propagate the logger to dependencies that use one if WithLogger was called before all of the dependencies were registered
	propagateLogger(c)
	propagateHTTPClient(c)
	return c, nil
}

type clientOption func(*Client) error

// UsingProvider registers an already constructed Provider.
func UsingProvider(p Provider) clientOption {
	return func(c *Client) error {
		if p == nil {
			return errors.New("ddns.UsingProvider: provider cannot be nil")
		}
		c.Provider = p
		return nil
	}
}

// UsingCloudflare registers a Cloudflare provider authenticated with creds.
func UsingCloudflare(creds Credentials) clientOption {
	return func(c *Client) (err error) {
		if c.Provider, err = NewCloudflare(creds); err != nil {
			return fmt.Errorf("ddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingResolver sets how addresses are discovered when a request carries no explicit content.
// A nil resolver restores DefaultResolver.
func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		if resolver == nil {
			resolver = DefaultResolver()
		}
		c.Resolver = resolver
		return nil
	}
}

// UsingWebResolver is shorthand for UsingResolver(WebResolver(serviceURL...)).
func UsingWebResolver(serviceURL ...string) clientOption {
	return func(c *Client) error {
		r, err := WebResolver(serviceURL...)
		if err != nil {
			return err
		}
		c.Resolver = r
		return nil
	}
}

// WithLogger sets the logger used by the client and by any resolver or provider that accepts one.
func WithLogger(logger logrus.FieldLogger) clientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = discard
		}
		c.logger = logger
		return nil
	}
}

// UsingHTTPClient sets the HTTP client of the resolver and provider, where they accept one.
//
// It is applied after every other option, so the order of options does not matter.
// The client replaces the provider's own, including its timeout.
func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		return nil
	}
}

func propagateHTTPClient(c *Client) {
	if c.httpClient == nil {
		return
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	if r, ok := c.Resolver.(setHTTPClient); ok {
		r.SetHTTPClient(c.httpClient)
	}
	if p, ok := c.Provider.(setHTTPClient); ok {
		p.SetHTTPClient(c.httpClient)
	}
}

func propagateLogger(c *Client) {
	type setLogger interface {
		SetLogger(logrus.FieldLogger)
	}
	if p, ok := c.Provider.(setLogger); ok {
		p.SetLogger(c.logger)
	}
	if r, ok := c.Resolver.(setLogger); ok {
		r.SetLogger(c.logger)
	}
}

// Client reconciles one record name in one zone.
type Client struct {
	Resolver
	Provider
	logger     logrus.FieldLogger
	httpClient *http.Client
	zone       string
}

// Request describes the record a run should converge on.
type Request struct {
	// Subdomain is combined with the zone using FQDN.
	Subdomain string
	// Content lists explicit values to publish.
	// When empty the client's Resolver is asked for the addresses instead.
	Content []string
	// Type is inferred from each address when empty.
	Type        RecordType
	ServiceMode ServiceMode
}

// Zone returns the zone the client manages.
func (c *Client) Zone() string { return c.zone }

// Update reconciles the record described by req.
//
// Every value is validated before the provider is contacted.
// Each value is then reconciled on its own;
// a failure for one value does not stop the others,
// and the returned error names every value that failed.
func (c *Client) Update(ctx context.Context, req Request) ([]Result, error) {
	name := FQDN(req.Subdomain, c.zone)
	contents := req.Content
	if len(contents) == 0 {
		var err error
		if contents, err = c.resolve(ctx, req.Type); err != nil {
			return nil, err
		}
	}
	c.logger.Debugf("Domain: %s, record: %s, content: %v, record type: %s, service mode: %s",
		c.zone, name, contents, req.Type, req.ServiceMode)

	targets, err := NewTargets(name, contents, req.Type, req.ServiceMode)
	if err != nil {
		return nil, err
	}

	r := &Reconciler{Provider: c.Provider, Zone: c.zone, Logger: c.logger}
	var results []Result
	var errs []error
	for _, t := range targets {
		res, err := r.Reconcile(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("error reconciling %s: %w", t, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// resolve asks the Resolver for addresses.
// A requested A or AAAA type limits the result to that family.
func (c *Client) resolve(ctx context.Context, typ RecordType) ([]string, error) {
	addrs, err := c.Resolve(ctx)
	if err != nil && len(addrs) == 0 {
		if errors.Is(err, ErrNoAddress) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: error getting IPs: %w", ErrNoAddress, err)
	}
	if err != nil {
		c.logger.Warnf("some addresses could not be resolved: %s", err)
	}
	switch typ {
	case TypeA:
		addrs = filterFamily(addrs, IPv4)
	case TypeAAAA:
		addrs = filterFamily(addrs, IPv6)
	case "":
	default:
		return nil, fmt.Errorf("%w: a %s record needs explicit content", ErrConfig, typ)
	}
	kept, dropped := onePerFamily(addrs)
	if len(kept) == 0 {
		if typ != "" {
			return nil, fmt.Errorf("%w: the resolver returned no address usable in a %s record", ErrNoAddress, typ)
		}
		return nil, fmt.Errorf("%w: the resolver returned no addresses", ErrNoAddress)
	}
	if len(dropped) > 0 {
		c.logger.Warnf("ignoring additional addresses %v; publishing %v", dropped, kept)
	}
	c.logger.Debugf("Found external IP address: %v", kept)
	contents := make([]string, 0, len(kept))
	for _, a := range kept {
		contents = append(contents, a.String())
	}
	return contents, nil
}

// List returns every record in the client's zone.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	records, err := c.ListRecords(ctx, c.zone)
	if err != nil {
		return nil, providerError("list", c.zone, err)
	}
	return records, nil
}

type logf interface {
	Printf(string, ...any)
}

// MinInterval is the shortest interval RunDaemon will wait between runs.
const MinInterval = 1 * time.Minute

// RunDaemon calls run immediately and then once per interval until ctx is done.
//
// Errors returned by run are sent to logger and do not stop the loop.
// A nil logger discards them.
func RunDaemon(ctx context.Context, interval time.Duration, logger logf, run func(context.Context) error) {
	if interval < MinInterval {
		interval = MinInterval
	}
	if logger == nil {
		logger = discard
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := run(ctx); err != nil {
			logger.Printf("ddns.RunDaemon: %s", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func mustParse(services []string) []*url.URL {
	r, err := WebResolver(services...)
	if err != nil {
		panic(err)
	}
	return r.(*webResolver).serviceURLs
}
