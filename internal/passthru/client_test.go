package passthru_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/passthru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowAll is a [passthru.SafetyChecker] that accepts every target.
type allowAll struct{}

// IsSafe implements the [passthru.SafetyChecker] interface for allowAll.
func (allowAll) IsSafe(_ context.Context, _ string) (ok bool) { return true }

// denyAll is a [passthru.SafetyChecker] that refuses every target.
type denyAll struct{}

// IsSafe implements the [passthru.SafetyChecker] interface for denyAll.
func (denyAll) IsSafe(_ context.Context, _ string) (ok bool) { return false }

// newClient returns a passthrough client for tests.
func newClient(tb testing.TB, g passthru.SafetyChecker) (c *passthru.Client) {
	tb.Helper()

	return passthru.NewClient(&passthru.ClientConfig{
		Logger: slogutil.NewDiscardLogger(),
		Guard:  g,
	})
}

func TestClient_Passthru(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotBody, gotXFF, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotXFF = r.Header.Get("X-Forwarded-For")
		gotToken = r.Header.Get("X-Token")

		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(b)

		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "upstream body")
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, allowAll{})
	req := &dsslmsg.HTTPRequest{
		Headers: map[string]string{
			"Host":    "z.d.test",
			"X-Token": "placeholder",
		},
		Client: "192.0.2.7",
		Method: "POST",
		Path:   "/callback",
		Body:   "hello placeholder",
	}

	resp, err := c.Passthru(context.Background(), req, &passthru.Settings{
		URL:  srv.URL,
		Subs: map[string]string{"placeholder": "substituted"},
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/callback", gotPath)
	assert.Equal(t, "hello substituted", gotBody)
	assert.Equal(t, "substituted", gotToken)
	assert.Equal(t, "192.0.2.7", gotXFF)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "upstream body", resp.Body)
	assert.Equal(t, "yes", resp.Headers["X-Upstream"])
}

func TestClient_Passthru_noRedirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, allowAll{})
	resp, err := c.Passthru(context.Background(), &dsslmsg.HTTPRequest{
		Method: "GET",
		Path:   "/",
	}, &passthru.Settings{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.Code)
}

func TestClient_Passthru_refused(t *testing.T) {
	t.Parallel()

	c := newClient(t, denyAll{})
	_, err := c.Passthru(context.Background(), &dsslmsg.HTTPRequest{
		Method: "GET",
		Path:   "/",
	}, &passthru.Settings{URL: "http://127.0.0.1/"})

	assert.ErrorIs(t, err, passthru.ErrUnsafe)
}

func TestClient_Passthru_skipXFF(t *testing.T) {
	t.Parallel()

	var gotXFF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotXFF = r.Header.Get("X-Forwarded-For")
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, allowAll{})
	_, err := c.Passthru(context.Background(), &dsslmsg.HTTPRequest{
		Client: "192.0.2.7",
		Method: "GET",
		Path:   "/",
	}, &passthru.Settings{
		URL:     srv.URL,
		SkipXFF: true,
	})
	require.NoError(t, err)

	assert.Empty(t, gotXFF)
}

func TestClient_Passthru_badTarget(t *testing.T) {
	t.Parallel()

	c := newClient(t, allowAll{})
	_, err := c.Passthru(context.Background(), &dsslmsg.HTTPRequest{
		Method: "GET",
		Path:   "/",
	}, &passthru.Settings{URL: "not a url"})

	assert.Error(t, err)
}
