package dsslmsg

import (
	"encoding/json"
	"fmt"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
)

// DNSRequest is a single DNS query.
type DNSRequest struct {
	// FQDN is the normalized query name.
	FQDN string

	// Domain is the registered domain FQDN lies under, or an empty string.
	Domain string

	// Zone is the FQDN of the zone the query resolved to, or an empty
	// string.
	Zone string

	// Client is the textual form of the client address, without the port.
	Client string

	// QType is the uppercase textual form of the query type, for example
	// "A" or "CAA".
	QType string
}

// type check
var _ Request = (*DNSRequest)(nil)

// RequestFQDN implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) RequestFQDN() (fqdn string) { return r.FQDN }

// DomainFQDN implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) DomainFQDN() (domain string) { return r.Domain }

// ZoneFQDN implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) ZoneFQDN() (zone string) { return r.Zone }

// Protocol implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) Protocol() (proto dssldrf.Protocol) { return dssldrf.ProtocolDNS }

// RemoteAddr implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) RemoteAddr() (addr string) { return r.Client }

// Summary implements the [Request] interface for *DNSRequest.
func (r *DNSRequest) Summary() (s string) {
	return r.QType + "/" + r.FQDN
}

// MarshalJSON implements the [json.Marshaler] interface for *DNSRequest.
func (r *DNSRequest) MarshalJSON() (b []byte, err error) {
	return json.Marshal(struct {
		FQDN  string `json:"fqdn"`
		QType string `json:"type"`
	}{
		FQDN:  r.FQDN,
		QType: r.QType,
	})
}

// DNSResponse is the DNS answer data a reply is synthesized from.
type DNSResponse struct {
	// RData is the answer data.  Its keys depend on RType, for example
	// {"ip": "1.2.3.4"} for an A answer.
	RData map[string]any

	// RName is the name the answer is for.
	RName string

	// RType is the uppercase textual form of the answer type.
	RType string

	// TTL is the answer TTL in seconds.
	TTL uint32
}

// type check
var _ Response = (*DNSResponse)(nil)

// Summary implements the [Response] interface for *DNSResponse.
func (r *DNSResponse) Summary() (s string) {
	d := r.RData
	switch r.RType {
	case "A", "AAAA":
		return fmt.Sprintf("%v", d["ip"])
	case "CNAME":
		return fmt.Sprintf("%v", d["cname"])
	case "MX":
		return fmt.Sprintf("%v %v", d["priority"], d["name"])
	case "NS":
		return fmt.Sprintf("%v", d["ns"])
	case "CAA":
		return fmt.Sprintf("%v %v %v", d["flags"], d["tag"], d["value"])
	case "SOA":
		return fmt.Sprintf("%v %v", d["mname"], d["rname"])
	case "TXT":
		return fmt.Sprintf("%v", d["txt"])
	default:
		return r.RType
	}
}

// MarshalJSON implements the [json.Marshaler] interface for *DNSResponse.
func (r *DNSResponse) MarshalJSON() (b []byte, err error) {
	return json.Marshal(struct {
		RData map[string]any `json:"data"`
		RName string         `json:"name"`
		RType string         `json:"type"`
		TTL   uint32         `json:"ttl"`
	}{
		RData: r.RData,
		RName: r.RName,
		RType: r.RType,
		TTL:   r.TTL,
	})
}
