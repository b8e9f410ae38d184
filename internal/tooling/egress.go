package tooling

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// privateCIDRs are pre-computed at package init to avoid re-parsing on every call.
var privateCIDRs []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",  // CGNAT
		"169.254.0.0/16", // link-local
		"fc00::/7",       // IPv6 ULA
	} {
		_, parsed, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("bad CIDR %q: %v", cidr, err))
		}
		privateCIDRs = append(privateCIDRs, parsed)
	}
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, cidr := range privateCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func isForbiddenHostname(host string) bool {
	lowered := strings.ToLower(host)
	return lowered == "localhost" || strings.HasSuffix(lowered, ".localhost")
}

// EgressGuard validates outbound URLs and provides an HTTP client whose
// dialer re-validates resolved addresses at connection time, closing the
// DNS-rebinding window between URL validation and the actual connect.
type EgressGuard struct {
	lookupHost func(ctx context.Context, host string) ([]string, error)
	dial       func(ctx context.Context, network, addr string) (net.Conn, error)
	client     *http.Client
	allow      map[string]struct{}
}

// NewEgressGuard builds a guard backed by the default resolver and dialer.
// Hostnames in allowHosts are exempt from the private-address checks, for
// deployments that need to reach an internal feed.
func NewEgressGuard(allowHosts ...string) *EgressGuard {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	guard := &EgressGuard{
		lookupHost: net.DefaultResolver.LookupHost,
		dial:       dialer.DialContext,
		allow:      make(map[string]struct{}, len(allowHosts)),
	}
	for _, host := range allowHosts {
		if trimmed := strings.ToLower(strings.TrimSpace(host)); trimmed != "" {
			guard.allow[trimmed] = struct{}{}
		}
	}
	guard.client = guard.newClient()
	return guard
}

func (g *EgressGuard) allowed(host string) bool {
	_, ok := g.allow[strings.ToLower(host)]
	return ok
}

func (g *EgressGuard) newClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         g.dialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// Redirects are not followed: a redirect to an internal address
		// must never be chased implicitly.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 15 * time.Second,
	}
}

// Client returns the guarded HTTP client. Every connection it opens passes
// through the validating dialer regardless of prior URL checks.
func (g *EgressGuard) Client() *http.Client { return g.client }

// ValidateURL is the fast-path check before a fetch: http(s) scheme, a real
// hostname, and no private/reserved destination either as a literal IP or
// via DNS. The dialer remains the authoritative guard.
func (g *EgressGuard) ValidateURL(ctx context.Context, rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q (only http/https allowed)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing hostname in url")
	}
	if g.allowed(host) {
		return parsed, nil
	}
	if isForbiddenHostname(host) {
		return nil, fmt.Errorf("hostname %q is not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("url targets private/reserved address %s", host)
		}
		return parsed, nil
	}

	ips, err := g.lookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed for %s: %w", host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("url resolves to private/reserved address %s", ipStr)
		}
	}
	return parsed, nil
}

// dialContext validates the destination at connect time and connects to the
// first validated IP directly so the address cannot be rebound between the
// lookup and the connection. The established peer is checked once more.
func (g *EgressGuard) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("egress dialer: invalid address %q: %w", addr, err)
	}
	if g.allowed(host) {
		return g.dial(ctx, network, addr)
	}

	target := host
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("egress dialer: %s is a private/reserved address", host)
		}
	} else {
		if isForbiddenHostname(host) {
			return nil, fmt.Errorf("egress dialer: hostname %q is not allowed", host)
		}
		ips, err := g.lookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("egress dialer: dns lookup %s: %w", host, err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("egress dialer: no addresses for %s", host)
		}
		for _, ipStr := range ips {
			ip := net.ParseIP(ipStr)
			if ip == nil {
				continue
			}
			if isPrivateIP(ip) {
				return nil, fmt.Errorf("egress dialer: %s resolves to private address %s", host, ipStr)
			}
		}
		target = ips[0]
	}

	conn, err := g.dial(ctx, network, net.JoinHostPort(target, port))
	if err != nil {
		return nil, err
	}
	if err := checkPeer(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func checkPeer(conn net.Conn) error {
	remote := conn.RemoteAddr()
	if remote == nil {
		return fmt.Errorf("egress dialer: connection has no remote address")
	}
	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		host = remote.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("egress dialer: unparseable peer address %q", remote.String())
	}
	if isPrivateIP(ip) {
		return fmt.Errorf("egress dialer: connection reached private address %s", host)
	}
	return nil
}
