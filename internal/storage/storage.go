// Package storage defines the store the Dusseldorf data plane reads domains,
// zones, and rules from and writes interactions to, as well as its MongoDB
// implementation and the caching layer over it.
package storage

import (
	"context"
	"net/netip"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
)

// Interface is the store interface of the data plane.  All read methods may
// fail with [dssldrf.StoreUnavailableError] wrapped into the returned error.
type Interface interface {
	// Domains returns the names of all registered domains.
	Domains(ctx context.Context) (domains []string, err error)

	// PublicIPs returns the public IPv4 pool of domain.
	PublicIPs(ctx context.Context, domain string) (ips []netip.Addr, err error)

	// ZoneForFQDN returns the FQDN of the zone that fqdn belongs to.  An
	// exact match wins; otherwise the longest zone FQDN that fqdn lies under
	// is returned.  If there is no such zone, zone is empty and err is nil.
	ZoneForFQDN(ctx context.Context, fqdn string) (zone string, err error)

	// DomainForZone returns the name of the domain that zone was created
	// under, or an empty string if zone is not registered.
	DomainForZone(ctx context.Context, zone string) (domain string, err error)

	// RulePredicates returns the predicate sets of all rules for the given
	// zone and protocol, ordered by priority ascending with the rule ID as a
	// lexicographic tiebreak.
	RulePredicates(
		ctx context.Context,
		proto dssldrf.Protocol,
		zone string,
	) (rules []*RulePredicates, err error)

	// RuleResults returns the result actions of the rule with the given ID,
	// in stored order.
	RuleResults(ctx context.Context, ruleID string) (actions []*RuleAction, err error)

	// RecordInteraction assigns the current Unix timestamp to inter and
	// appends it to the store.
	RecordInteraction(ctx context.Context, inter *dssldrf.Interaction) (err error)
}

// Predicate is a single predicate component of a rule.
type Predicate struct {
	// Name is the catalogue name of the predicate, for example "dns.type".
	Name string

	// Value is the predicate parameter.  An empty value is a wildcard that
	// always matches.
	Value string
}

// RulePredicates is the predicate set of a single rule.
type RulePredicates struct {
	// RuleID is the UUID of the rule.
	RuleID string

	// Predicates are the rule's predicate components in stored order.
	Predicates []Predicate
}

// RuleAction is a single result component of a rule.
type RuleAction struct {
	// ComponentID is the UUID of the rule component.
	ComponentID string

	// Name is the catalogue name of the result, for example "http.code".
	Name string

	// Value is the result parameter.  Depending on the result it is a plain
	// string or a JSON document.
	Value string
}
