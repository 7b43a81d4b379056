package passthru

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// forbiddenNets are the networks outbound requests must never reach:
// loopback, RFC 1918, link-local, the Azure metadata address, and their IPv6
// counterparts.
var forbiddenNets = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("168.63.129.16/32"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// GuardConfig is the configuration of the network guard.
type GuardConfig struct {
	// Logger is used for logging refused targets.  It must not be nil.
	Logger *slog.Logger

	// Resolver resolves target hostnames.  It must not be nil.
	Resolver Resolver
}

// Guard classifies passthrough targets as safe or unsafe.
type Guard struct {
	logger   *slog.Logger
	resolver Resolver
}

// type check
var _ SafetyChecker = (*Guard)(nil)

// NewGuard returns a new network guard.  c must not be nil.
func NewGuard(c *GuardConfig) (g *Guard) {
	return &Guard{
		logger:   c.Logger,
		resolver: c.Resolver,
	}
}

// IsSafe returns true if host, which is either an IP literal or a hostname,
// resolves only to addresses outside the forbidden networks.  Resolution
// failure is treated as unsafe.
func (g *Guard) IsSafe(ctx context.Context, host string) (ok bool) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return isSafeAddr(ip)
	}

	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		g.logger.WarnContext(ctx, "resolving target", "host", host, slogutil.KeyError, err)

		return false
	}

	for _, ip := range addrs {
		if !isSafeAddr(ip) {
			return false
		}
	}

	return len(addrs) > 0
}

// isSafeAddr returns true if ip is outside all forbidden networks.
func isSafeAddr(ip netip.Addr) (ok bool) {
	ip = ip.Unmap()
	for _, n := range forbiddenNets {
		if n.Contains(ip) {
			return false
		}
	}

	return true
}
