package dsslmsg

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/netip"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// SOA refresh, retry, expire, and minimum times, in seconds.
const (
	soaRefresh = 7_200
	soaRetry   = 10_800
	soaExpire  = 259_200
	soaMinimum = 3_600
)

// ConstructorConfig is the configuration of the default-response constructor.
type ConstructorConfig struct {
	// Logger is used for logging the operation of the constructor.  It must
	// not be nil.
	Logger *slog.Logger

	// Storage is used for the per-domain public IP pools.  It must not be
	// nil.
	Storage storage.Interface

	// IPv6Pool are the addresses default AAAA answers are synthesized from.
	// If empty, AAAA answers fall back to "::".
	IPv6Pool []netip.Addr

	// CAAValue is the CA authorized by default CAA answers.  It must not be
	// empty.
	CAAValue string

	// ContactEmail is the contact reported in SOA and apex CAA answers.  If
	// empty, "hostmaster@<domain>" is used.
	ContactEmail string

	// SOASerial is the serial of default SOA answers.
	SOASerial uint32

	// DefaultTTL is the TTL of default answers, in seconds.
	DefaultTTL uint32
}

// Constructor builds the default responses returned when no rule overrides
// them.
type Constructor struct {
	logger   *slog.Logger
	storage  storage.Interface
	ipv6Pool []netip.Addr
	caaValue string
	contact  string
	serial   uint32
	ttl      uint32
}

// NewConstructor returns a new default-response constructor.  c must not be
// nil.
func NewConstructor(c *ConstructorConfig) (mc *Constructor) {
	return &Constructor{
		logger:   c.Logger,
		storage:  c.Storage,
		ipv6Pool: c.IPv6Pool,
		caaValue: c.CAAValue,
		contact:  c.ContactEmail,
		serial:   c.SOASerial,
		ttl:      c.DefaultTTL,
	}
}

// DefaultTTL returns the TTL of default answers, in seconds.
func (mc *Constructor) DefaultTTL() (ttl uint32) { return mc.ttl }

// Contact returns the contact e-mail reported for domain.
func (mc *Constructor) Contact(domain string) (email string) {
	if mc.contact != "" {
		return mc.contact
	}

	return "hostmaster@" + domain
}

// DefaultResponse returns the default response for req.  For an HTTP request
// that is the Empty response; for a DNS request, the per-qtype default.  resp
// is nil if no default can be synthesized for the query type.
func (mc *Constructor) DefaultResponse(ctx context.Context, req Request) (resp Response, err error) {
	switch req := req.(type) {
	case *DNSRequest:
		dnsResp, dErr := mc.DefaultDNSResponse(ctx, req.Domain, req.FQDN, req.QType)
		if dErr != nil {
			return nil, dErr
		} else if dnsResp == nil {
			// Avoid a non-nil interface value holding a nil pointer.
			return nil, nil
		}

		return dnsResp, nil
	case *HTTPRequest:
		return NewEmptyHTTPResponse(), nil
	default:
		return nil, fmt.Errorf("request type: %w: %T", errors.ErrBadEnumValue, req)
	}
}

// DefaultDNSResponse returns the default DNS answer data for a query of type
// qtype for fqdn under the registered domain.  resp is nil if qtype is not in
// the supported set.
func (mc *Constructor) DefaultDNSResponse(
	ctx context.Context,
	domain string,
	fqdn string,
	qtype string,
) (resp *DNSResponse, err error) {
	var rdata map[string]any
	switch qtype {
	case "A":
		ip, ipErr := mc.randomPublicIP(ctx, domain)
		if ipErr != nil {
			return nil, ipErr
		}

		rdata = map[string]any{"ip": ip}
	case "AAAA":
		rdata = map[string]any{"ip": mc.randomIPv6()}
	case "CNAME":
		rdata = map[string]any{"cname": "cname." + domain + "."}
	case "MX":
		rdata = map[string]any{"priority": 10, "name": "mail." + domain}
	case "NS":
		ip, ipErr := mc.randomPublicIP(ctx, domain)
		if ipErr != nil {
			return nil, ipErr
		}

		rdata = map[string]any{"ns": ip}
	case "CAA":
		rdata = map[string]any{"flags": 0, "tag": "issue", "value": mc.caaValue}
	case "SOA":
		rdata = map[string]any{
			"mname": "ns1." + domain,
			"rname": strings.ReplaceAll(mc.Contact(domain), "@", "."),
			"times": []any{mc.serial, soaRefresh, soaRetry, soaExpire, soaMinimum},
		}
	case "TXT":
		rdata = map[string]any{"txt": "txt"}
	default:
		return nil, nil
	}

	return &DNSResponse{
		RData: rdata,
		RName: fqdn,
		RType: qtype,
		TTL:   mc.ttl,
	}, nil
}

// randomPublicIP returns a random address from the public IPv4 pool of
// domain, as a string.
func (mc *Constructor) randomPublicIP(ctx context.Context, domain string) (ip string, err error) {
	ips, err := mc.storage.PublicIPs(ctx, domain)
	if err != nil {
		return "", err
	} else if len(ips) == 0 {
		return "", fmt.Errorf("domain %q: %w: public ips", domain, errors.ErrEmptyValue)
	}

	return ips[rand.IntN(len(ips))].String(), nil
}

// randomIPv6 returns a random address from the IPv6 pool, as a string, or
// "::" if the pool is empty.
func (mc *Constructor) randomIPv6() (ip string) {
	if len(mc.ipv6Pool) == 0 {
		return "::"
	}

	return mc.ipv6Pool[rand.IntN(len(mc.ipv6Pool))].String()
}
