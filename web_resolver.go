package ddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultServices are queried when no IP lookup services are configured.
// I'm not vouching for these services, but they do return the IP of the client connection.
var DefaultServices = []string{
	"https://icanhazip.com/", // operated by Cloudflare since ~2021
	"https://checkip.amazonaws.com/",
	"https://ipinfo.io/ip",
}

// lookupTimeout bounds each request so a stalled service cannot hang a scheduled run.
const lookupTimeout = 15 * time.Second

// WebResolver constructs a resolver which uses external web services to look up a "public" IP address.
//
// Each serviceURL must speak http, answer with a 2xx status,
// and return nothing but an IPv4 or IPv6 address in the response body (surrounding whitespace is ignored).
// Everything else is treated as a failure of that one service.
//
// Services are queried one after another in the given order and every one of them is asked.
// Failures are logged and skipped.
// The distinct addresses returned are reported in the order they were first seen,
// and the resolver only returns an error when no service produced an address.
func WebResolver(serviceURL ...string) (Resolver, error) {
	var URLs []*url.URL
	for _, u := range serviceURL {
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("%w: error parsing URL: %w", ErrConfig, err)
		}
		if pu.Scheme != "http" && pu.Scheme != "https" {
			return nil, fmt.Errorf("%w: IP lookup service %q must be an http or https URL", ErrConfig, u)
		}
		URLs = append(URLs, pu)
	}
	return &webResolver{serviceURLs: URLs, logger: discard}, nil
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []*url.URL
	logger      logrus.FieldLogger
}

func (wr *webResolver) SetLogger(logger logrus.FieldLogger) { wr.logger = logger }

func (wr *webResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }

// Resolve implements ddns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) ([]netip.Addr, error) {
	if len(wr.serviceURLs) == 0 {
		return nil, fmt.Errorf("%w: no external IP lookup services were provided", ErrNoAddress)
	}

	var addrs []netip.Addr
	var errs []error
	seen := map[netip.Addr]bool{}
	for _, u := range wr.serviceURLs {
		addr, err := wr.lookup(ctx, u)
		if err != nil {
			wr.logger.Debugf("IP lookup via %s failed: %s", u, err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		wr.logger.Debugf("%s reported %s", u, addr)
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no IP lookup service returned a usable address: %w", ErrNoAddress, errors.Join(errs...))
	}
	return addrs, nil
}

func (wr *webResolver) lookup(ctx context.Context, url *url.URL) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	// an address literal is at most 45 bytes; anything much longer is not one
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error reading response body: %w", err)
	}
	ipstring := strings.TrimSpace(string(body))
	if ipstring == "" {
		return netip.Addr{}, errors.New("empty response body")
	}
	if Classify(ipstring) == Neither {
		return netip.Addr{}, fmt.Errorf("response body %q is not an IP address", ipstring)
	}
	return netip.ParseAddr(ipstring)
}
