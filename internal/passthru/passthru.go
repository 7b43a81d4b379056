// Package passthru contains the outbound proxy of the passthrough rule
// results and the network guard that keeps it away from internal networks.
package passthru

import (
	"context"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrUnsafe is returned by the client when the guard refuses the target.
const ErrUnsafe errors.Error = "target resolves into a forbidden network"

// Timeout bounds of an outbound request, in milliseconds.
const (
	DefaultTimeoutMS = 2_000
	MaxTimeoutMS     = 10_000
)

// Resolver resolves hostnames to IP addresses.  [net.Resolver] implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) (addrs []netip.Addr, err error)
}

// SafetyChecker classifies passthrough targets as safe or unsafe.  [*Guard]
// implements it.
type SafetyChecker interface {
	IsSafe(ctx context.Context, host string) (ok bool)
}

// Settings are the parameters of a single outbound request.  They are
// unmarshaled from the rewriting passthrough's JSON parameter; the plain
// passthrough uses only URL.
type Settings struct {
	// Subs are substring substitutions applied to the outbound header values
	// and body.
	Subs map[string]string `json:"subs"`

	// URL is the target URL.
	URL string `json:"url"`

	// TimeoutMS is the response timeout in milliseconds.  Values outside
	// (0, MaxTimeoutMS] fall back to [DefaultTimeoutMS].
	TimeoutMS int `json:"timeout_in_ms"`

	// SkipXFF disables adding the X-Forwarded-For header.
	SkipXFF bool `json:"skip_xff"`

	// SkipTLSCheck disables certificate verification of the target.
	SkipTLSCheck bool `json:"skip_tls_check"`
}
