package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the IP addresses bound to the given interfaces.
// If no interfaces are provided then all interfaces will be used.
// Loopback and link-local addresses are always skipped since they are useless in a public record.
func InterfaceResolver(iface ...string) Resolver {
	if len(iface) == 0 {
		return localResolver{}
	}
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (addrs []netip.Addr, err error) {
	var errs []error
	for _, ifs := range r.ifaces {
		iface, err := net.InterfaceByName(ifs)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", ifs, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", ifs, err))
			continue
		}
		found, perr := publishable(a)
		if perr != nil {
			errs = append(errs, fmt.Errorf("interface %s: %w", ifs, perr))
		}
		addrs = append(addrs, found...)
	}
	return addrs, errors.Join(errs...)
}

type localResolver struct{}

func (r localResolver) Resolve(ctx context.Context) (addrs []netip.Addr, err error) {
	adds, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting addresses for interface: %w", err)
	}
	return publishable(adds)
}

// publishable parses interface addresses, dropping the ones that make no sense in DNS.
func publishable(adds []net.Addr) (addrs []netip.Addr, err error) {
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var parseErrors []error
	for _, addr := range adds {
		ip, err := netip.ParsePrefix(addr.String())
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("error parsing local ip %s: %s", addr.String(), err))
			continue
		}
		a := ip.Addr()
		if a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsUnspecified() {
			continue
		}
		addrs = append(addrs, a.Unmap())
	}
	return addrs, errors.Join(parseErrors...)
}
