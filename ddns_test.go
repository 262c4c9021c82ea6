package ddns_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/Travis-Britz/cfddns"
)

func staticResolver(addrs ...string) ddns.Resolver {
	return ddns.ResolverFunc(func(context.Context) ([]netip.Addr, error) {
		var out []netip.Addr
		for _, a := range addrs {
			out = append(out, netip.MustParseAddr(a))
		}
		return out, nil
	})
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := ddns.New("example.com"); !errors.Is(err, ddns.ErrConfig) {
		t.Fatalf("Expected ErrConfig without a provider; got %v", err)
	}
	if _, err := ddns.New("", ddns.UsingProvider(&fakeProvider{})); !errors.Is(err, ddns.ErrConfig) {
		t.Fatalf("Expected ErrConfig without a zone; got %v", err)
	}
}

func TestUpdateEditsExistingRecord(t *testing.T) {
	p := &fakeProvider{records: []ddns.Record{
		{ID: "r1", Name: "home.example.com", Type: ddns.TypeA, Content: "203.0.113.5"},
	}}
	c, err := ddns.New("example.com", ddns.UsingProvider(p))
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	results, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Content: []string{"203.0.113.9"}})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if len(results) != 1 || results[0].Action != ddns.Updated {
		t.Fatalf("Expected one update; got %+v", results)
	}
	if len(p.edits) != 1 || p.edits[0].ID != "r1" || p.edits[0].Params.Content != "203.0.113.9" {
		t.Fatalf("Expected one edit of r1 to 203.0.113.9; got %+v", p.edits)
	}
}

func TestUpdateCreatesMissingRecord(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com", ddns.UsingProvider(p))
	_, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Content: []string{"203.0.113.9"}, Type: ddns.TypeA})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if len(p.creates) != 1 {
		t.Fatalf("Expected one create; got %d", len(p.creates))
	}
	want := ddns.RecordParams{Type: ddns.TypeA, Name: "home.example.com", Content: "203.0.113.9"}
	if p.creates[0] != want {
		t.Fatalf("Expected %+v; got %+v", want, p.creates[0])
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com", ddns.UsingProvider(p))
	req := ddns.Request{Subdomain: "home", Content: []string{"203.0.113.9"}}
	for i := 0; i < 3; i++ {
		if _, err := c.Update(context.Background(), req); err != nil {
			t.Fatalf("Update %d failed: %s", i, err)
		}
	}
	if len(p.creates) != 1 || len(p.edits) != 0 {
		t.Fatalf("Expected a single create over three runs; got %d creates and %d edits", len(p.creates), len(p.edits))
	}
	if len(p.records) != 1 {
		t.Fatalf("Expected one record; got %+v", p.records)
	}
}

func TestUpdateValidatesBeforeContactingProvider(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com", ddns.UsingProvider(p))
	_, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Content: []string{"203.0.113.9"}, Type: ddns.TypeAAAA})
	var ve *ddns.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected a *ddns.ValidationError; got %v", err)
	}
	if p.lists != 0 {
		t.Fatalf("Expected the provider to be untouched; got %d list calls", p.lists)
	}
}

func TestUpdateResolvesBothFamilies(t *testing.T) {
	p := &fakeProvider{records: []ddns.Record{
		{ID: "a", Name: "home.example.com", Type: ddns.TypeA, Content: "192.0.2.1"},
		{ID: "aaaa", Name: "home.example.com", Type: ddns.TypeAAAA, Content: "2001:db8::1"},
	}}
	c, _ := ddns.New("example.com",
		ddns.UsingProvider(p),
		ddns.UsingResolver(staticResolver("192.0.2.1", "2001:db8::2", "192.0.2.99")),
	)
	results, err := c.Update(context.Background(), ddns.Request{Subdomain: "home"})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected one result per family; got %+v", results)
	}
	if results[0].Action != ddns.Unchanged || results[1].Action != ddns.Updated {
		t.Fatalf("Expected A unchanged and AAAA updated; got %s and %s", results[0].Action, results[1].Action)
	}
	if len(p.edits) != 1 || p.edits[0].ID != "aaaa" {
		t.Fatalf("Expected the AAAA record to be edited; got %+v", p.edits)
	}
	if p.lists != 2 {
		t.Fatalf("Expected the records to be fetched once per address; got %d", p.lists)
	}
}

func TestUpdateNoAddress(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com",
		ddns.UsingProvider(p),
		ddns.UsingResolver(ddns.ResolverFunc(func(context.Context) ([]netip.Addr, error) {
			return nil, errors.New("network is unreachable")
		})),
	)
	_, err := c.Update(context.Background(), ddns.Request{Subdomain: "home"})
	if !errors.Is(err, ddns.ErrNoAddress) {
		t.Fatalf("Expected ErrNoAddress; got %v", err)
	}
	if p.lists != 0 {
		t.Fatalf("Expected no provider calls; got %d", p.lists)
	}
}

func TestUpdateReportsEachFailure(t *testing.T) {
	p := &fakeProvider{createErr: errors.New("quota exceeded")}
	c, _ := ddns.New("example.com", ddns.UsingProvider(p))
	results, err := c.Update(context.Background(), ddns.Request{Content: []string{"192.0.2.1", "2001:db8::1"}})
	if err == nil {
		t.Fatalf("Expected an error; got results %+v", results)
	}
	if len(p.creates) != 2 {
		t.Fatalf("Expected both values to be attempted; got %d creates", len(p.creates))
	}
	var pe *ddns.ProviderError
	if !errors.As(err, &pe) || pe.Op != "create" {
		t.Fatalf("Expected a create *ddns.ProviderError; got %v", err)
	}
}

func TestList(t *testing.T) {
	p := &fakeProvider{records: []ddns.Record{{ID: "r1", Name: "example.com", Type: ddns.TypeA, Content: "192.0.2.1"}}}
	c, _ := ddns.New("example.com", ddns.UsingProvider(p))
	records, err := c.List(context.Background())
	if err != nil || len(records) != 1 {
		t.Fatalf("Expected one record; got %+v, %v", records, err)
	}
	p.listErr = errors.New("boom")
	if _, err := c.List(context.Background()); err == nil {
		t.Fatalf("Expected list error")
	}
}

func TestRunDaemonStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runs := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		ddns.RunDaemon(ctx, time.Hour, nil, func(context.Context) error {
			runs++
			cancel()
			return errors.New("logged, not fatal")
		})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Expected RunDaemon to return after the context was cancelled")
	}
	if runs != 1 {
		t.Fatalf("Expected exactly one run; got %d", runs)
	}
}

func TestUpdateRequestedTypeFiltersResolvedAddresses(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com",
		ddns.UsingProvider(p),
		ddns.UsingResolver(staticResolver("2001:db8::2", "192.0.2.1")),
	)
	results, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Type: ddns.TypeAAAA})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if len(results) != 1 || results[0].Target.Content != "2001:db8::2" {
		t.Fatalf("Expected only the IPv6 address to be published; got %+v", results)
	}

	c, _ = ddns.New("example.com",
		ddns.UsingProvider(p),
		ddns.UsingResolver(staticResolver("2001:db8::2")),
	)
	if _, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Type: ddns.TypeA}); !errors.Is(err, ddns.ErrNoAddress) {
		t.Fatalf("Expected ErrNoAddress without an IPv4 address; got %v", err)
	}
	if _, err := c.Update(context.Background(), ddns.Request{Subdomain: "home", Type: ddns.TypeTXT}); !errors.Is(err, ddns.ErrConfig) {
		t.Fatalf("Expected ErrConfig for a TXT record without content; got %v", err)
	}
}

func TestUpdateDualStackConverges(t *testing.T) {
	p := &fakeProvider{}
	c, _ := ddns.New("example.com",
		ddns.UsingProvider(p),
		ddns.UsingResolver(staticResolver("192.0.2.1", "2001:db8::1")),
	)
	results, err := c.Update(context.Background(), ddns.Request{Subdomain: "home"})
	if err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if len(results) != 2 || results[0].Action != ddns.Created || results[1].Action != ddns.Created {
		t.Fatalf("Expected an A and an AAAA record to be created; got %+v", results)
	}
	if len(p.records) != 2 || p.records[0].Type != ddns.TypeA || p.records[1].Type != ddns.TypeAAAA {
		t.Fatalf("Expected A and AAAA records in the zone; got %+v", p.records)
	}

	before := p.mutations()
	results, err = c.Update(context.Background(), ddns.Request{Subdomain: "home"})
	if err != nil {
		t.Fatalf("second Update failed: %s", err)
	}
	if n := p.mutations() - before; n != 0 {
		t.Fatalf("Expected no mutations on the second run; got %d", n)
	}
	for _, r := range results {
		if r.Action != ddns.Unchanged {
			t.Fatalf("Expected both records unchanged; got %+v", results)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestUsingHTTPClientIgnoresOptionOrder(t *testing.T) {
	calls := 0
	httpclient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader("198.51.100.7\n")),
			Request:    r,
		}, nil
	})}
	p := &fakeProvider{}
	c, err := ddns.New("example.com",
		ddns.UsingHTTPClient(httpclient),
		ddns.UsingWebResolver("http://ip.invalid/"),
		ddns.UsingProvider(p),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if _, err := c.Update(context.Background(), ddns.Request{Subdomain: "home"}); err != nil {
		t.Fatalf("Update failed: %s", err)
	}
	if calls != 1 {
		t.Fatalf("Expected the lookup to go through the given client once; got %d calls", calls)
	}
	if len(p.creates) != 1 || p.creates[0].Content != "198.51.100.7" {
		t.Fatalf("Expected 198.51.100.7 to be published; got %+v", p.creates)
	}
}
