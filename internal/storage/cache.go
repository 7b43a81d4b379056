package storage

import (
	"context"
	"log/slog"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslcache"
	"github.com/dssldrf/dusseldorf/internal/metrics"
)

// Store is the connectivity-aware store that [Cache] wraps.
type Store interface {
	Interface

	// Ping checks the connectivity of the store.
	Ping(ctx context.Context) (err error)

	// Reconnect drops the current connection and establishes a new one.
	Reconnect(ctx context.Context) (err error)
}

// Cache TTLs.  Domain and zone data changes rarely; rule data must converge
// quickly so that rule edits become visible under load.
const (
	domainsTTL = 30 * time.Second
	rulesTTL   = 1 * time.Second
)

// pingInterval is how long a successful ping is trusted before the next store
// operation pings again.
const pingInterval = 30 * time.Second

// cacheSize is the maximum number of entries of each cache.
const cacheSize = 10_000

// domainsKey is the single key of the domain-list cache.
const domainsKey = ""

// CacheConfig is the configuration of the caching store.
type CacheConfig struct {
	// Logger is used for logging the operation of the caching store.  It
	// must not be nil.
	Logger *slog.Logger

	// Store is the underlying store.  It must not be nil.
	Store Store
}

// Cache is an [Interface] implementation that caches the read methods of an
// underlying store and guarantees its connectivity with a memoised ping.
type Cache struct {
	logger *slog.Logger
	store  Store

	domains   dsslcache.Interface[string, []string]
	publicIPs dsslcache.Interface[string, []netip.Addr]
	zones     dsslcache.Interface[string, string]
	zoneDoms  dsslcache.Interface[string, string]
	preds     dsslcache.Interface[string, []*RulePredicates]

	// pingMu protects lastPing.
	pingMu   *sync.Mutex
	lastPing time.Time
}

// NewCache returns a new caching store.  c must not be nil.
func NewCache(c *CacheConfig) (s *Cache) {
	return &Cache{
		logger: c.Logger,
		store:  c.Store,
		domains: dsslcache.NewLRU[string, []string](&dsslcache.LRUConfig{
			Size: 1,
		}),
		publicIPs: dsslcache.NewLRU[string, []netip.Addr](&dsslcache.LRUConfig{
			Size: cacheSize,
		}),
		zones: dsslcache.NewLRU[string, string](&dsslcache.LRUConfig{
			Size: cacheSize,
		}),
		zoneDoms: dsslcache.NewLRU[string, string](&dsslcache.LRUConfig{
			Size: cacheSize,
		}),
		preds: dsslcache.NewLRU[string, []*RulePredicates](&dsslcache.LRUConfig{
			Size: cacheSize,
		}),
		pingMu: &sync.Mutex{},
	}
}

// type check
var _ Interface = (*Cache)(nil)

// guarantee makes sure the underlying store is reachable.  A successful ping
// is memoised for [pingInterval]; a failed ping triggers one reconnect
// attempt before the operation fails with [dssldrf.StoreUnavailableError].
func (s *Cache) guarantee(ctx context.Context) (err error) {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()

	if time.Since(s.lastPing) < pingInterval {
		return nil
	}

	err = s.store.Ping(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "store ping failed; reconnecting", slogutil.KeyError, err)
		metrics.StorageReconnectsTotal.Inc()

		err = s.store.Reconnect(ctx)
		if err != nil {
			return &dssldrf.StoreUnavailableError{Err: err}
		}
	}

	s.lastPing = time.Now()

	return nil
}

// countLookup increments the cache-lookup metric.
func countLookup(cache string, hit bool) {
	metrics.StorageCacheLookups.WithLabelValues(cache, strconv.FormatBool(hit)).Inc()
}

// Domains implements the [Interface] interface for *Cache.
func (s *Cache) Domains(ctx context.Context) (domains []string, err error) {
	domains, ok := s.domains.Get(domainsKey)
	countLookup("domains", ok)
	if ok {
		return domains, nil
	}

	err = s.guarantee(ctx)
	if err != nil {
		return nil, err
	}

	domains, err = s.store.Domains(ctx)
	if err != nil {
		return nil, err
	}

	s.domains.SetWithExpire(domainsKey, domains, domainsTTL)

	return domains, nil
}

// PublicIPs implements the [Interface] interface for *Cache.
func (s *Cache) PublicIPs(ctx context.Context, domain string) (ips []netip.Addr, err error) {
	ips, ok := s.publicIPs.Get(domain)
	countLookup("public_ips", ok)
	if ok {
		return ips, nil
	}

	err = s.guarantee(ctx)
	if err != nil {
		return nil, err
	}

	ips, err = s.store.PublicIPs(ctx, domain)
	if err != nil {
		return nil, err
	}

	s.publicIPs.SetWithExpire(domain, ips, domainsTTL)

	return ips, nil
}

// ZoneForFQDN implements the [Interface] interface for *Cache.  Negative
// results are cached as well.
func (s *Cache) ZoneForFQDN(ctx context.Context, fqdn string) (zone string, err error) {
	zone, ok := s.zones.Get(fqdn)
	countLookup("zones", ok)
	if ok {
		return zone, nil
	}

	err = s.guarantee(ctx)
	if err != nil {
		return "", err
	}

	zone, err = s.store.ZoneForFQDN(ctx, fqdn)
	if err != nil {
		return "", err
	}

	s.zones.SetWithExpire(fqdn, zone, domainsTTL)

	return zone, nil
}

// DomainForZone implements the [Interface] interface for *Cache.
func (s *Cache) DomainForZone(ctx context.Context, zone string) (domain string, err error) {
	domain, ok := s.zoneDoms.Get(zone)
	countLookup("zone_domains", ok)
	if ok {
		return domain, nil
	}

	err = s.guarantee(ctx)
	if err != nil {
		return "", err
	}

	domain, err = s.store.DomainForZone(ctx, zone)
	if err != nil {
		return "", err
	}

	s.zoneDoms.SetWithExpire(zone, domain, domainsTTL)

	return domain, nil
}

// RulePredicates implements the [Interface] interface for *Cache.
func (s *Cache) RulePredicates(
	ctx context.Context,
	proto dssldrf.Protocol,
	zone string,
) (rules []*RulePredicates, err error) {
	key := string(proto) + "/" + zone
	rules, ok := s.preds.Get(key)
	countLookup("predicates", ok)
	if ok {
		return rules, nil
	}

	err = s.guarantee(ctx)
	if err != nil {
		return nil, err
	}

	rules, err = s.store.RulePredicates(ctx, proto, zone)
	if err != nil {
		return nil, err
	}

	s.preds.SetWithExpire(key, rules, rulesTTL)

	return rules, nil
}

// RuleResults implements the [Interface] interface for *Cache.  Results are
// not cached, since they are only fetched for the single matched rule.
func (s *Cache) RuleResults(ctx context.Context, ruleID string) (actions []*RuleAction, err error) {
	err = s.guarantee(ctx)
	if err != nil {
		return nil, err
	}

	return s.store.RuleResults(ctx, ruleID)
}

// RecordInteraction implements the [Interface] interface for *Cache.
func (s *Cache) RecordInteraction(
	ctx context.Context,
	inter *dssldrf.Interaction,
) (err error) {
	err = s.guarantee(ctx)
	if err != nil {
		return err
	}

	return s.store.RecordInteraction(ctx, inter)
}
