package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/passthru"
	"github.com/google/uuid"
)

// dnsTypeResult overrides the answer type.
func dnsTypeResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.DNSResponse)
	if !ok {
		return nil
	}

	resp.RType = strings.ToUpper(strings.TrimSpace(value))

	return nil
}

// dnsDataResult replaces the answer data with the JSON object parameter.
func dnsDataResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.DNSResponse)
	if !ok {
		return nil
	}

	rdata := map[string]any{}
	err = json.Unmarshal([]byte(value), &rdata)
	if err != nil {
		return fmt.Errorf("dns.data: %w", err)
	}

	resp.RData = rdata

	return nil
}

// dnsTTLResult sets the answer TTL.
func dnsTTLResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.DNSResponse)
	if !ok {
		return nil
	}

	ttl, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return fmt.Errorf("dns.ttl: %w", err)
	}

	resp.TTL = uint32(ttl)

	return nil
}

// httpCodeResult sets the response status code.
func httpCodeResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.HTTPResponse)
	if !ok {
		return nil
	}

	code, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("http.code: %w", err)
	}

	resp.Code = code

	return nil
}

// httpBodyResult sets the response body.
func httpBodyResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.HTTPResponse)
	if !ok {
		return nil
	}

	resp.Body = value

	return nil
}

// httpHeaderResult adds or replaces a single header from a "Name: value"
// parameter.
func httpHeaderResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.HTTPResponse)
	if !ok {
		return nil
	}

	name, val, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("http.header: %q: %w: colon", value, errors.ErrNoValue)
	}

	name = strings.TrimSpace(name)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}

	for k := range resp.Headers {
		if strings.EqualFold(k, name) {
			delete(resp.Headers, k)
		}
	}

	resp.Headers[name] = strings.TrimSpace(val)

	return nil
}

// httpHeadersResult replaces the full header map with the JSON object
// parameter.
func httpHeadersResult(_ context.Context, s *state, value string) (err error) {
	resp, ok := s.resp.(*dsslmsg.HTTPResponse)
	if !ok {
		return nil
	}

	headers := map[string]string{}
	err = json.Unmarshal([]byte(value), &headers)
	if err != nil {
		return fmt.Errorf("http.headers: %w", err)
	}

	resp.Headers = headers

	return nil
}

// passthruResult forwards the request to the URL parameter and replaces the
// response with the upstream one.  On refusal or failure the response is
// left untouched.
func (e *Engine) passthruResult(ctx context.Context, s *state, value string) (err error) {
	return e.doPassthru(ctx, s, &passthru.Settings{
		URL:     value,
		SkipXFF: true,
	})
}

// passthru2Result is the rewriting variant of [Engine.passthruResult],
// configured by a JSON parameter.
func (e *Engine) passthru2Result(ctx context.Context, s *state, value string) (err error) {
	settings := &passthru.Settings{}
	err = json.Unmarshal([]byte(value), settings)
	if err != nil {
		return fmt.Errorf("http.passthru2: %w", err)
	}

	return e.doPassthru(ctx, s, settings)
}

// doPassthru performs the outbound request and folds the upstream response
// into the state.
func (e *Engine) doPassthru(ctx context.Context, s *state, settings *passthru.Settings) (err error) {
	httpReq, ok := s.req.(*dsslmsg.HTTPRequest)
	if !ok {
		return nil
	}

	resp, err := e.passthru.Passthru(ctx, httpReq, settings)
	if err != nil {
		metrics.WebSvcPassthruTotal.WithLabelValues("error").Inc()

		return err
	}

	metrics.WebSvcPassthruTotal.WithLabelValues("ok").Inc()
	s.resp = resp

	return nil
}

// varResult performs a substring substitution over the response body and
// header values from a "from:to" parameter.  The replacement "uuid()"
// expands to a fresh UUID and "zone()" to the zone FQDN.
func (e *Engine) varResult(_ context.Context, s *state, value string) (err error) {
	from, to, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("var: %q: %w: colon", value, errors.ErrNoValue)
	}

	// An empty substitution source would match between every character of
	// the body, so it leaves the response unchanged.
	if strings.TrimSpace(from) == "" {
		return nil
	}

	switch to {
	case "uuid()":
		to = uuid.NewString()
	case "zone()":
		to = s.zone
	}

	resp, ok := s.resp.(*dsslmsg.HTTPResponse)
	if !ok {
		return nil
	}

	resp.Body = strings.ReplaceAll(resp.Body, from, to)
	for k, v := range resp.Headers {
		if strings.Contains(v, from) {
			resp.Headers[k] = strings.ReplaceAll(v, from, to)
		}
	}

	return nil
}

// randomParam is the JSON parameter of the random result.
type randomParam struct {
	Results []struct {
		Type      string `json:"type"`
		Parameter string `json:"parameter"`
	} `json:"results"`
	Weights []float64 `json:"weights"`
}

// randomResult samples one sub-result by weight and applies it through the
// same result catalogue.
func (e *Engine) randomResult(ctx context.Context, s *state, value string) (err error) {
	p := &randomParam{}
	err = json.Unmarshal([]byte(value), p)
	if err != nil {
		return fmt.Errorf("random: %w", err)
	}

	switch {
	case len(p.Results) == 0:
		return fmt.Errorf("random: %w: results", errors.ErrEmptyValue)
	case len(p.Results) != len(p.Weights):
		return fmt.Errorf(
			"random: got %d results and %d weights",
			len(p.Results),
			len(p.Weights),
		)
	}

	for i, w := range p.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("random: weight at index %d: %v: %w", i, w, errors.ErrOutOfRange)
		}
	}

	sub := p.Results[sampleIndex(p.Weights)]
	if sub.Type == "random" {
		return fmt.Errorf("random: %w: nested random", errors.ErrBadEnumValue)
	}

	impl, ok := e.results[sub.Type]
	if !ok {
		return fmt.Errorf("random: result type: %w: %q", errors.ErrBadEnumValue, sub.Type)
	}

	return impl(ctx, s, sub.Parameter)
}

// sampleIndex returns an index sampled according to weights.  A zero total
// weight degrades to a uniform choice.
func sampleIndex(weights []float64) (idx int) {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	if total <= 0 {
		return rand.IntN(len(weights))
	}

	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}

	return len(weights) - 1
}
