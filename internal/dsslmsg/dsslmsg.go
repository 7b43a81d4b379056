// Package dsslmsg contains the request and response entities the listeners
// build for every interaction, as well as the constructor of default
// responses.
package dsslmsg

import (
	"encoding/json"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
)

// Request is a request captured by one of the listeners.  Implementations are
// [*DNSRequest] and [*HTTPRequest].
type Request interface {
	json.Marshaler

	// RequestFQDN returns the normalized FQDN the request was sent to.
	RequestFQDN() (fqdn string)

	// DomainFQDN returns the registered domain the request FQDN lies under.
	DomainFQDN() (domain string)

	// ZoneFQDN returns the FQDN of the zone the request resolved to, or an
	// empty string.
	ZoneFQDN() (zone string)

	// Protocol returns the network protocol of the request.
	Protocol() (proto dssldrf.Protocol)

	// RemoteAddr returns the textual form of the client address, without the
	// port.
	RemoteAddr() (addr string)

	// Summary returns a short human-readable rendering of the request.
	Summary() (s string)
}

// Response is a response produced for a [Request].  Implementations are
// [*DNSResponse] and [*HTTPResponse].
type Response interface {
	json.Marshaler

	// Summary returns a short human-readable rendering of the response.
	Summary() (s string)
}
