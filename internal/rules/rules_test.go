package rules_test

import (
	"context"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/dssltest"
	"github.com/dssldrf/dusseldorf/internal/passthru"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePassthru is a [rules.PassthruClient] for tests.
type fakePassthru struct {
	onPassthru func(
		ctx context.Context,
		req *dsslmsg.HTTPRequest,
		s *passthru.Settings,
	) (resp *dsslmsg.HTTPResponse, err error)
}

// Passthru implements the [rules.PassthruClient] interface for *fakePassthru.
func (c *fakePassthru) Passthru(
	ctx context.Context,
	req *dsslmsg.HTTPRequest,
	s *passthru.Settings,
) (resp *dsslmsg.HTTPResponse, err error) {
	return c.onPassthru(ctx, req, s)
}

// newEngine returns a rule engine for tests backed by store and pt.  When pt
// is nil, a passthrough client refusing every target is used.
func newEngine(tb testing.TB, store *dssltest.Store, pt rules.PassthruClient) (e *rules.Engine) {
	tb.Helper()

	if pt == nil {
		pt = &fakePassthru{
			onPassthru: func(
				_ context.Context,
				_ *dsslmsg.HTTPRequest,
				_ *passthru.Settings,
			) (resp *dsslmsg.HTTPResponse, err error) {
				return nil, passthru.ErrUnsafe
			},
		}
	}

	return rules.NewEngine(&rules.Config{
		Logger:  slogutil.NewDiscardLogger(),
		Storage: store,
		Constructor: dsslmsg.NewConstructor(&dsslmsg.ConstructorConfig{
			Logger:     slogutil.NewDiscardLogger(),
			Storage:    store,
			CAAValue:   "ca.example",
			DefaultTTL: 60,
		}),
		Passthru: pt,
	})
}

// storeWithRules returns a fake store serving the given rules for every
// zone and protocol.
func storeWithRules(
	preds []*storage.RulePredicates,
	results map[string][]*storage.RuleAction,
) (store *dssltest.Store) {
	store = dssltest.NewStore()
	store.OnRulePredicates = func(
		_ context.Context,
		_ dssldrf.Protocol,
		_ string,
	) (rules []*storage.RulePredicates, err error) {
		return preds, nil
	}
	store.OnRuleResults = func(
		_ context.Context,
		ruleID string,
	) (actions []*storage.RuleAction, err error) {
		return results[ruleID], nil
	}

	return store
}

// newHTTPRequest returns a GET request for tests.
func newHTTPRequest() (req *dsslmsg.HTTPRequest) {
	return &dsslmsg.HTTPRequest{
		Headers: map[string]string{"Host": dssltest.Zone},
		FQDN:    dssltest.Zone,
		Domain:  dssltest.Domain,
		Zone:    dssltest.Zone,
		Client:  "192.0.2.7",
		Method:  "GET",
		Path:    "/",
		Version: "HTTP/1.1",
	}
}

func TestEngine_Response_default(t *testing.T) {
	t.Parallel()

	e := newEngine(t, dssltest.NewStore(), nil)

	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	httpResp, ok := resp.(*dsslmsg.HTTPResponse)
	require.True(t, ok)

	assert.Equal(t, 200, httpResp.Code)
	assert.Empty(t, httpResp.Body)
}

func TestEngine_Response_predicateUnsatisfied(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
		Predicates: []storage.Predicate{{
			Name:  "http.method",
			Value: "POST",
		}},
	}}, map[string][]*storage.RuleAction{
		"r1": {{ComponentID: "c1", Name: "http.code", Value: "201"}},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, 200, resp.(*dsslmsg.HTTPResponse).Code)
}

func TestEngine_Response_priorityOrder(t *testing.T) {
	t.Parallel()

	// Both rules match; the store returns them in priority order, so the
	// first one must win.
	store := storeWithRules([]*storage.RulePredicates{
		{RuleID: "r10"},
		{RuleID: "r20"},
	}, map[string][]*storage.RuleAction{
		"r10": {{ComponentID: "c1", Name: "http.code", Value: "418"}},
		"r20": {{ComponentID: "c2", Name: "http.code", Value: "500"}},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, 418, resp.(*dsslmsg.HTTPResponse).Code)
}

func TestEngine_Response_unknownNamesSkipped(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
		Predicates: []storage.Predicate{
			{Name: "http.quantum", Value: "whatever"},
			{Name: "http.method", Value: "GET"},
		},
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.teleport", Value: "nope"},
			{ComponentID: "c2", Name: "http.code", Value: "204"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, 204, resp.(*dsslmsg.HTTPResponse).Code)
}

func TestEngine_Response_wildcardPredicate(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
		Predicates: []storage.Predicate{{
			Name:  "http.path",
			Value: "",
		}},
	}}, map[string][]*storage.RuleAction{
		"r1": {{ComponentID: "c1", Name: "http.body", Value: "matched"}},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, "matched", resp.(*dsslmsg.HTTPResponse).Body)
}

func TestEngine_Response_headerResults(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.headers", Value: `{"x-one":"1","X-Two":"2"}`},
			{ComponentID: "c2", Name: "http.header", Value: "X-One: replaced"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	httpResp := resp.(*dsslmsg.HTTPResponse)
	assert.Equal(t, "replaced", httpResp.Headers["X-One"])
	assert.Equal(t, "2", httpResp.Headers["X-Two"])
	assert.NotContains(t, httpResp.Headers, "x-one")
}

func TestEngine_Response_varDeferred(t *testing.T) {
	t.Parallel()

	// The var action is stored before the body action but must be applied
	// after it.
	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "var", Value: "ok:done"},
			{ComponentID: "c2", Name: "http.body", Value: "status is ok"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, "status is done", resp.(*dsslmsg.HTTPResponse).Body)
}

func TestEngine_Response_varFunctions(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.body", Value: "id=REPL zone=ZONE"},
			{ComponentID: "c2", Name: "var", Value: "REPL:uuid()"},
			{ComponentID: "c3", Name: "var", Value: "ZONE:zone()"},
		},
	})

	e := newEngine(t, store, nil)

	first, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	second, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	firstBody := first.(*dsslmsg.HTTPResponse).Body
	secondBody := second.(*dsslmsg.HTTPResponse).Body

	assert.Contains(t, firstBody, "zone="+dssltest.Zone)
	assert.NotEqual(t, firstBody, secondBody)

	id := strings.TrimPrefix(strings.Fields(firstBody)[0], "id=")
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestEngine_Response_varEmptySource(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.body", Value: "ok"},
			{ComponentID: "c2", Name: "var", Value: ":Z"},
			{ComponentID: "c3", Name: "var", Value: " :Z"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.(*dsslmsg.HTTPResponse).Body)
}

func TestEngine_Response_dnsRule(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
		Predicates: []storage.Predicate{{
			Name:  "dns.type",
			Value: "a, aaaa",
		}},
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "dns.data", Value: `{"ip":"9.9.9.9"}`},
			{ComponentID: "c2", Name: "dns.ttl", Value: "300"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), &dsslmsg.DNSRequest{
		FQDN:   "foo." + dssltest.Zone,
		Domain: dssltest.Domain,
		Zone:   dssltest.Zone,
		Client: "192.0.2.7",
		QType:  "A",
	})
	require.NoError(t, err)

	dnsResp, ok := resp.(*dsslmsg.DNSResponse)
	require.True(t, ok)

	assert.Equal(t, "A", dnsResp.RType)
	assert.Equal(t, "9.9.9.9", dnsResp.RData["ip"])
	assert.Equal(t, uint32(300), dnsResp.TTL)
}

func TestEngine_Response_random(t *testing.T) {
	t.Parallel()

	t.Run("single", func(t *testing.T) {
		t.Parallel()

		store := storeWithRules([]*storage.RulePredicates{{
			RuleID: "r1",
		}}, map[string][]*storage.RuleAction{
			"r1": {{
				ComponentID: "c1",
				Name:        "random",
				Value: `{"results":[{"type":"http.code","parameter":"503"}],` +
					`"weights":[1]}`,
			}},
		})

		e := newEngine(t, store, nil)
		resp, err := e.Response(context.Background(), newHTTPRequest())
		require.NoError(t, err)

		assert.Equal(t, 503, resp.(*dsslmsg.HTTPResponse).Code)
	})

	t.Run("bad_weights", func(t *testing.T) {
		t.Parallel()

		store := storeWithRules([]*storage.RulePredicates{{
			RuleID: "r1",
		}}, map[string][]*storage.RuleAction{
			"r1": {{
				ComponentID: "c1",
				Name:        "random",
				Value: `{"results":[{"type":"http.code","parameter":"503"}],` +
					`"weights":[2]}`,
			}},
		})

		e := newEngine(t, store, nil)
		resp, err := e.Response(context.Background(), newHTTPRequest())
		require.NoError(t, err)

		// The malformed component is skipped; the default survives.
		assert.Equal(t, 200, resp.(*dsslmsg.HTTPResponse).Code)
	})
}

func TestEngine_Response_passthruRefused(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.body", Value: "pre-passthru"},
			{ComponentID: "c2", Name: "http.passthru", Value: "http://127.0.0.1/"},
		},
	})

	e := newEngine(t, store, nil)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	// The guard refused, so the response stays at the pre-passthru state.
	assert.Equal(t, "pre-passthru", resp.(*dsslmsg.HTTPResponse).Body)
}

func TestEngine_Response_passthruApplied(t *testing.T) {
	t.Parallel()

	pt := &fakePassthru{
		onPassthru: func(
			_ context.Context,
			_ *dsslmsg.HTTPRequest,
			s *passthru.Settings,
		) (resp *dsslmsg.HTTPResponse, err error) {
			if s.URL != "http://upstream.example/" {
				return nil, errors.Error("unexpected target")
			}

			return &dsslmsg.HTTPResponse{
				Headers: map[string]string{"X-Upstream": "yes"},
				Body:    "upstream",
				Code:    202,
			}, nil
		},
	}

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {{ComponentID: "c1", Name: "http.passthru", Value: "http://upstream.example/"}},
	})

	e := newEngine(t, store, pt)
	resp, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	httpResp := resp.(*dsslmsg.HTTPResponse)
	assert.Equal(t, 202, httpResp.Code)
	assert.Equal(t, "upstream", httpResp.Body)
}

func TestEngine_Response_idempotent(t *testing.T) {
	t.Parallel()

	store := storeWithRules([]*storage.RulePredicates{{
		RuleID: "r1",
	}}, map[string][]*storage.RuleAction{
		"r1": {
			{ComponentID: "c1", Name: "http.body", Value: "zone is ZONE"},
			{ComponentID: "c2", Name: "var", Value: "ZONE:zone()"},
		},
	})

	e := newEngine(t, store, nil)

	first, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	second, err := e.Response(context.Background(), newHTTPRequest())
	require.NoError(t, err)

	assert.Equal(
		t,
		first.(*dsslmsg.HTTPResponse).Body,
		second.(*dsslmsg.HTTPResponse).Body,
	)
}
