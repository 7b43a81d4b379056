// Package dssltest contains simple mocks for common interfaces and other test
// utilities.
package dssltest

import (
	"context"
	"net/netip"
	"strings"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// Common test data.
const (
	// Domain is the registered domain for tests.
	Domain = "d.test"

	// Zone is the registered zone for tests.
	Zone = "z.d.test"
)

// PublicIP is the public IPv4 of [Domain] for tests.
var PublicIP = netip.MustParseAddr("1.1.1.1")

// type check
var _ storage.Store = (*Store)(nil)

// Store is a [storage.Store] for tests.
type Store struct {
	OnDomains        func(ctx context.Context) (domains []string, err error)
	OnPublicIPs      func(ctx context.Context, domain string) (ips []netip.Addr, err error)
	OnZoneForFQDN    func(ctx context.Context, fqdn string) (zone string, err error)
	OnDomainForZone  func(ctx context.Context, zone string) (domain string, err error)
	OnRulePredicates func(
		ctx context.Context,
		proto dssldrf.Protocol,
		zone string,
	) (rules []*storage.RulePredicates, err error)
	OnRuleResults func(ctx context.Context, ruleID string) (actions []*storage.RuleAction, err error)
	OnRecordInteraction func(ctx context.Context, inter *dssldrf.Interaction) (err error)
	OnPing              func(ctx context.Context) (err error)
	OnReconnect         func(ctx context.Context) (err error)
}

// NewStore returns a *Store with all methods set to return the common test
// data: domain [Domain] with [PublicIP], zone [Zone], no rules, and a
// reachable store.
func NewStore() (s *Store) {
	return &Store{
		OnDomains: func(_ context.Context) (domains []string, err error) {
			return []string{Domain}, nil
		},
		OnPublicIPs: func(_ context.Context, _ string) (ips []netip.Addr, err error) {
			return []netip.Addr{PublicIP}, nil
		},
		OnZoneForFQDN: func(_ context.Context, fqdn string) (zone string, err error) {
			if fqdn == Zone || strings.HasSuffix(fqdn, "."+Zone) {
				return Zone, nil
			}

			return "", nil
		},
		OnDomainForZone: func(_ context.Context, _ string) (domain string, err error) {
			return Domain, nil
		},
		OnRulePredicates: func(
			_ context.Context,
			_ dssldrf.Protocol,
			_ string,
		) (rules []*storage.RulePredicates, err error) {
			return nil, nil
		},
		OnRuleResults: func(
			_ context.Context,
			_ string,
		) (actions []*storage.RuleAction, err error) {
			return nil, nil
		},
		OnRecordInteraction: func(_ context.Context, _ *dssldrf.Interaction) (err error) {
			return nil
		},
		OnPing:      func(_ context.Context) (err error) { return nil },
		OnReconnect: func(_ context.Context) (err error) { return nil },
	}
}

// Domains implements the [storage.Interface] interface for *Store.
func (s *Store) Domains(ctx context.Context) (domains []string, err error) {
	return s.OnDomains(ctx)
}

// PublicIPs implements the [storage.Interface] interface for *Store.
func (s *Store) PublicIPs(ctx context.Context, domain string) (ips []netip.Addr, err error) {
	return s.OnPublicIPs(ctx, domain)
}

// ZoneForFQDN implements the [storage.Interface] interface for *Store.
func (s *Store) ZoneForFQDN(ctx context.Context, fqdn string) (zone string, err error) {
	return s.OnZoneForFQDN(ctx, fqdn)
}

// DomainForZone implements the [storage.Interface] interface for *Store.
func (s *Store) DomainForZone(ctx context.Context, zone string) (domain string, err error) {
	return s.OnDomainForZone(ctx, zone)
}

// RulePredicates implements the [storage.Interface] interface for *Store.
func (s *Store) RulePredicates(
	ctx context.Context,
	proto dssldrf.Protocol,
	zone string,
) (rules []*storage.RulePredicates, err error) {
	return s.OnRulePredicates(ctx, proto, zone)
}

// RuleResults implements the [storage.Interface] interface for *Store.
func (s *Store) RuleResults(
	ctx context.Context,
	ruleID string,
) (actions []*storage.RuleAction, err error) {
	return s.OnRuleResults(ctx, ruleID)
}

// RecordInteraction implements the [storage.Interface] interface for *Store.
func (s *Store) RecordInteraction(
	ctx context.Context,
	inter *dssldrf.Interaction,
) (err error) {
	return s.OnRecordInteraction(ctx, inter)
}

// Ping implements the [storage.Store] interface for *Store.
func (s *Store) Ping(ctx context.Context) (err error) {
	return s.OnPing(ctx)
}

// Reconnect implements the [storage.Store] interface for *Store.
func (s *Store) Reconnect(ctx context.Context) (err error) {
	return s.OnReconnect(ctx)
}
