// Package rules contains the rule engine: predicate matching over incoming
// requests and response assembly through result actions.
package rules

import (
	"context"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/passthru"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// PassthruClient performs the outbound requests of passthrough rule results.
// [*passthru.Client] implements it.
type PassthruClient interface {
	Passthru(
		ctx context.Context,
		req *dsslmsg.HTTPRequest,
		s *passthru.Settings,
	) (resp *dsslmsg.HTTPResponse, err error)
}

// predicateFunc reports whether req satisfies the predicate with the given
// parameter.  value is never empty: empty parameters are wildcards and are
// handled by the engine.
type predicateFunc func(req dsslmsg.Request, value string) (ok bool, err error)

// resultFunc applies one result action to the evaluation state.
type resultFunc func(ctx context.Context, s *state, value string) (err error)

// state is the mutable evaluation context of a matched rule.
type state struct {
	resp        dsslmsg.Response
	req         dsslmsg.Request
	zone        string
	ruleID      string
	componentID string
}

// Config is the configuration of the rule engine.
type Config struct {
	// Logger is used for logging the operation of the engine.  It must not
	// be nil.
	Logger *slog.Logger

	// Storage provides the rules.  It must not be nil.
	Storage storage.Interface

	// Constructor builds the default responses rules mutate.  It must not
	// be nil.
	Constructor *dsslmsg.Constructor

	// Passthru performs the outbound requests of passthrough results.  It
	// must not be nil.
	Passthru PassthruClient
}

// Engine evaluates the rules of a zone against a request and assembles the
// response.
type Engine struct {
	logger      *slog.Logger
	storage     storage.Interface
	constructor *dsslmsg.Constructor
	passthru    PassthruClient

	predicates map[string]predicateFunc
	results    map[string]resultFunc
}

// NewEngine returns a new rule engine with the full predicate and result
// catalogues registered.  c must not be nil.
func NewEngine(c *Config) (e *Engine) {
	e = &Engine{
		logger:      c.Logger,
		storage:     c.Storage,
		constructor: c.Constructor,
		passthru:    c.Passthru,
	}

	e.predicates = map[string]predicateFunc{
		"dns.type":             dnsTypePredicate,
		"http.tls":             httpTLSPredicate,
		"http.method":          httpMethodPredicate,
		"http.path":            httpPathPredicate,
		"http.body":            httpBodyPredicate,
		"http.header":          httpHeaderPredicate,
		"http.headers.keys":    httpHeaderKeysPredicate,
		"http.headers.values":  httpHeaderValuesPredicate,
		"http.headers.regexes": httpHeaderRegexesPredicate,
	}

	e.results = map[string]resultFunc{
		"dns.type":       dnsTypeResult,
		"dns.data":       dnsDataResult,
		"dns.ttl":        dnsTTLResult,
		"http.code":      httpCodeResult,
		"http.body":      httpBodyResult,
		"http.header":    httpHeaderResult,
		"http.headers":   httpHeadersResult,
		"http.passthru":  e.passthruResult,
		"http.passthru2": e.passthru2Result,
		"var":            e.varResult,
		"random":         e.randomResult,
	}

	return e
}

// Response returns the response for req: the result program of the first rule
// whose predicates all match, or the default response when no rule matches.
// resp is nil when no response can be synthesized for the query type.
func (e *Engine) Response(ctx context.Context, req dsslmsg.Request) (resp dsslmsg.Response, err error) {
	resp, err = e.constructor.DefaultResponse(ctx, req)
	if err != nil {
		return nil, err
	}

	rules, err := e.storage.RulePredicates(ctx, req.Protocol(), req.ZoneFQDN())
	if err != nil {
		return nil, err
	}

	for _, r := range rules {
		if !e.ruleMatches(ctx, req, r) {
			continue
		}

		metrics.RulesMatchedTotal.WithLabelValues(string(req.Protocol())).Inc()

		return e.applyRule(ctx, req, resp, r.RuleID)
	}

	return resp, nil
}

// ruleMatches reports whether every known predicate of r is satisfied by req.
// Unknown predicate names and predicates that fail to parse their parameter
// are skipped.
func (e *Engine) ruleMatches(
	ctx context.Context,
	req dsslmsg.Request,
	r *storage.RulePredicates,
) (matches bool) {
	for _, p := range r.Predicates {
		impl, ok := e.predicates[p.Name]
		if !ok {
			e.logger.WarnContext(ctx, "unknown predicate", "name", p.Name, "rule_id", r.RuleID)
			metrics.RulesUnknownComponentsTotal.Inc()

			continue
		}

		if p.Value == "" {
			// Wildcard.
			continue
		}

		satisfied, err := impl(req, p.Value)
		if err != nil {
			e.logger.WarnContext(
				ctx,
				"evaluating predicate",
				"name", p.Name,
				"rule_id", r.RuleID,
				slogutil.KeyError, err,
			)

			continue
		}

		if !satisfied {
			return false
		}
	}

	return true
}

// applyRule applies the result actions of the rule to a fresh evaluation
// state and returns the resulting response.  Actions named "var" are deferred
// until after all other actions, so that variable substitution sees the final
// values.
func (e *Engine) applyRule(
	ctx context.Context,
	req dsslmsg.Request,
	defaultResp dsslmsg.Response,
	ruleID string,
) (resp dsslmsg.Response, err error) {
	actions, err := e.storage.RuleResults(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	s := &state{
		resp:   e.baseResponse(req, defaultResp),
		req:    req,
		zone:   req.ZoneFQDN(),
		ruleID: ruleID,
	}

	var deferred []*storage.RuleAction
	for _, a := range actions {
		if a.Name == "var" {
			deferred = append(deferred, a)

			continue
		}

		e.applyAction(ctx, s, a)
	}

	for _, a := range deferred {
		e.applyAction(ctx, s, a)
	}

	return s.resp, nil
}

// applyAction applies a single result action to s.  Unknown names and
// malformed parameters are logged and skipped.
func (e *Engine) applyAction(ctx context.Context, s *state, a *storage.RuleAction) {
	impl, ok := e.results[a.Name]
	if !ok {
		e.logger.WarnContext(ctx, "unknown result", "name", a.Name, "rule_id", s.ruleID)
		metrics.RulesUnknownComponentsTotal.Inc()

		return
	}

	s.componentID = a.ComponentID
	err := impl(ctx, s, a.Value)
	if err != nil {
		e.logger.WarnContext(
			ctx,
			"applying result",
			"name", a.Name,
			"rule_id", s.ruleID,
			"component_id", a.ComponentID,
			slogutil.KeyError, err,
		)
	}
}

// baseResponse returns the response the result program starts from.  When
// the default constructor could not synthesize one for a DNS query type, an
// empty answer of the requested type is used so that dns.data rules can still
// fill it.
func (e *Engine) baseResponse(
	req dsslmsg.Request,
	defaultResp dsslmsg.Response,
) (resp dsslmsg.Response) {
	if defaultResp != nil {
		return defaultResp
	}

	dnsReq, ok := req.(*dsslmsg.DNSRequest)
	if !ok {
		return dsslmsg.NewEmptyHTTPResponse()
	}

	return &dsslmsg.DNSResponse{
		RData: map[string]any{},
		RName: dnsReq.FQDN,
		RType: dnsReq.QType,
		TTL:   e.constructor.DefaultTTL(),
	}
}
