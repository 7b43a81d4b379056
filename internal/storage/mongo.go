package storage

import (
	"context"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names of the store.
const (
	collDomains  = "domains"
	collZones    = "zones"
	collRules    = "rules"
	collRequests = "requests"
)

// connectTimeout is the timeout of establishing a connection to the store.
const connectTimeout = 10 * time.Second

// MongoConfig is the configuration of the MongoDB store.
type MongoConfig struct {
	// Logger is used for logging the operation of the store.  It must not be
	// nil.
	Logger *slog.Logger

	// URI is the MongoDB connection string.  It must not be empty.
	URI string

	// Database is the name of the database.  It must not be empty.
	Database string
}

// Mongo is the MongoDB implementation of the store.
type Mongo struct {
	logger *slog.Logger
	uri    string
	dbName string

	// mu protects client.  Reconnect swaps the client; readers must go
	// through [Mongo.database].
	mu     *sync.RWMutex
	client *mongo.Client
}

// NewMongo connects to the store and returns the new store.  c must not be
// nil.
func NewMongo(ctx context.Context, c *MongoConfig) (s *Mongo, err error) {
	s = &Mongo{
		logger: c.Logger,
		uri:    c.URI,
		dbName: c.Database,
		mu:     &sync.RWMutex{},
	}

	s.client, err = connect(ctx, c.URI)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// connect establishes and pings a client connection to the store.
func connect(ctx context.Context, uri string) (cli *mongo.Client, err error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	cli, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Annotate(err, "storage: connecting: %w")
	}

	err = cli.Ping(ctx, readpref.Primary())
	if err != nil {
		return nil, errors.Annotate(err, "storage: pinging: %w")
	}

	return cli, nil
}

// database returns the current database handle.
func (s *Mongo) database() (db *mongo.Database) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.client.Database(s.dbName)
}

// Ping checks the connectivity of the store.
func (s *Mongo) Ping(ctx context.Context) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.client.Ping(ctx, readpref.Primary())
}

// Reconnect drops the current connection and establishes a new one.
func (s *Mongo) Reconnect(ctx context.Context) (err error) {
	cli, err := connect(ctx, s.uri)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.client
	s.client = cli

	discCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err = prev.Disconnect(discCtx)
	if err != nil {
		s.logger.WarnContext(ctx, "disconnecting previous client", slogutil.KeyError, err)
	}

	return nil
}

// Shutdown disconnects from the store.
func (s *Mongo) Shutdown(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Disconnect(ctx)
}

// mongoDomain is the BSON representation of a domain.
type mongoDomain struct {
	Domain    string   `bson:"domain"`
	PublicIPs []string `bson:"public_ips"`
}

// mongoZone is the BSON representation of a zone.
type mongoZone struct {
	FQDN   string `bson:"fqdn"`
	Domain string `bson:"domain"`
}

// mongoRule is the BSON representation of a rule.
type mongoRule struct {
	RuleID     string           `bson:"ruleid"`
	Zone       string           `bson:"zone"`
	Protocol   string           `bson:"networkprotocol"`
	Priority   int              `bson:"priority"`
	Components []mongoComponent `bson:"rulecomponents"`
}

// mongoComponent is the BSON representation of a rule component.
type mongoComponent struct {
	ComponentID string `bson:"componentid"`
	IsPredicate bool   `bson:"ispredicate"`
	ActionName  string `bson:"actionname"`
	ActionValue string `bson:"actionvalue"`
}

// type check
var _ Interface = (*Mongo)(nil)

// Domains implements the [Interface] interface for *Mongo.
func (s *Mongo) Domains(ctx context.Context) (domains []string, err error) {
	defer func() { err = errors.Annotate(err, "storage: listing domains: %w") }()

	cur, err := s.database().Collection(collDomains).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, cur.Close(ctx)) }()

	for cur.Next(ctx) {
		d := &mongoDomain{}
		err = cur.Decode(d)
		if err != nil {
			return nil, err
		}

		domains = append(domains, d.Domain)
	}

	return domains, cur.Err()
}

// PublicIPs implements the [Interface] interface for *Mongo.
func (s *Mongo) PublicIPs(ctx context.Context, domain string) (ips []netip.Addr, err error) {
	defer func() { err = errors.Annotate(err, "storage: public ips of %q: %w", domain) }()

	d := &mongoDomain{}
	err = s.database().Collection(collDomains).FindOne(ctx, bson.M{
		"domain": domain,
	}).Decode(d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, err
	}

	for _, ipStr := range d.PublicIPs {
		ip, parseErr := netip.ParseAddr(ipStr)
		if parseErr != nil {
			s.logger.WarnContext(ctx, "skipping bad public ip", "domain", domain, "ip", ipStr)

			continue
		}

		ips = append(ips, ip)
	}

	return ips, nil
}

// ZoneForFQDN implements the [Interface] interface for *Mongo.  It queries
// all dot-separated suffixes of fqdn at once and picks the longest registered
// one.
func (s *Mongo) ZoneForFQDN(ctx context.Context, fqdn string) (zone string, err error) {
	defer func() { err = errors.Annotate(err, "storage: zone for %q: %w", fqdn) }()

	cur, err := s.database().Collection(collZones).Find(ctx, bson.M{
		"fqdn": bson.M{"$in": suffixes(fqdn)},
	})
	if err != nil {
		return "", err
	}
	defer func() { err = errors.WithDeferred(err, cur.Close(ctx)) }()

	for cur.Next(ctx) {
		z := &mongoZone{}
		err = cur.Decode(z)
		if err != nil {
			return "", err
		}

		if len(z.FQDN) > len(zone) {
			zone = z.FQDN
		}
	}

	return zone, cur.Err()
}

// suffixes returns fqdn and all its dot-separated suffixes, longest first.
func suffixes(fqdn string) (sufs []string) {
	sufs = []string{fqdn}
	for {
		_, rest, ok := strings.Cut(fqdn, ".")
		if !ok {
			return sufs
		}

		sufs = append(sufs, rest)
		fqdn = rest
	}
}

// DomainForZone implements the [Interface] interface for *Mongo.
func (s *Mongo) DomainForZone(ctx context.Context, zone string) (domain string, err error) {
	defer func() { err = errors.Annotate(err, "storage: domain for zone %q: %w", zone) }()

	z := &mongoZone{}
	err = s.database().Collection(collZones).FindOne(ctx, bson.M{
		"fqdn": zone,
	}).Decode(z)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}

		return "", err
	}

	return z.Domain, nil
}

// RulePredicates implements the [Interface] interface for *Mongo.
func (s *Mongo) RulePredicates(
	ctx context.Context,
	proto dssldrf.Protocol,
	zone string,
) (rules []*RulePredicates, err error) {
	defer func() { err = errors.Annotate(err, "storage: predicates for %q/%s: %w", zone, proto) }()

	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: 1},
		{Key: "ruleid", Value: 1},
	})
	cur, err := s.database().Collection(collRules).Find(ctx, bson.M{
		"zone":            zone,
		"networkprotocol": string(proto),
	}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, cur.Close(ctx)) }()

	for cur.Next(ctx) {
		r := &mongoRule{}
		err = cur.Decode(r)
		if err != nil {
			return nil, err
		}

		rp := &RulePredicates{
			RuleID: r.RuleID,
		}
		for _, c := range r.Components {
			if c.IsPredicate {
				rp.Predicates = append(rp.Predicates, Predicate{
					Name:  c.ActionName,
					Value: c.ActionValue,
				})
			}
		}

		rules = append(rules, rp)
	}

	return rules, cur.Err()
}

// RuleResults implements the [Interface] interface for *Mongo.
func (s *Mongo) RuleResults(ctx context.Context, ruleID string) (actions []*RuleAction, err error) {
	defer func() { err = errors.Annotate(err, "storage: results for rule %q: %w", ruleID) }()

	r := &mongoRule{}
	err = s.database().Collection(collRules).FindOne(ctx, bson.M{
		"ruleid": ruleID,
	}).Decode(r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, err
	}

	for _, c := range r.Components {
		if !c.IsPredicate {
			actions = append(actions, &RuleAction{
				ComponentID: c.ComponentID,
				Name:        c.ActionName,
				Value:       c.ActionValue,
			})
		}
	}

	return actions, nil
}

// RecordInteraction implements the [Interface] interface for *Mongo.
func (s *Mongo) RecordInteraction(
	ctx context.Context,
	inter *dssldrf.Interaction,
) (err error) {
	defer func() { err = errors.Annotate(err, "storage: recording interaction: %w") }()

	inter.Time = time.Now().Unix()
	_, err = s.database().Collection(collRequests).InsertOne(ctx, bson.M{
		"time":        inter.Time,
		"zone":        inter.Zone,
		"fqdn":        inter.FQDN,
		"protocol":    string(inter.Protocol),
		"clientip":    inter.ClientIP,
		"request":     inter.Request,
		"response":    inter.Response,
		"reqsummary":  inter.ReqSummary,
		"respsummary": inter.RespSummary,
	})

	return err
}
