package passthru

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
)

// ClientConfig is the configuration of the passthrough client.
type ClientConfig struct {
	// Logger is used for logging outbound requests.  It must not be nil.
	Logger *slog.Logger

	// Guard refuses unsafe targets.  It must not be nil.
	Guard SafetyChecker
}

// Client performs the outbound requests of passthrough rule results.
type Client struct {
	logger *slog.Logger
	guard  SafetyChecker
}

// NewClient returns a new passthrough client.  c must not be nil.
func NewClient(c *ClientConfig) (cli *Client) {
	return &Client{
		logger: c.Logger,
		guard:  c.Guard,
	}
}

// Passthru forwards req to the target described by s and returns the
// upstream response.  Method, path, and body are inherited from req; headers
// are copied with Host replaced by the target authority; redirects are never
// followed.  An unsafe target fails with [ErrUnsafe].
func (c *Client) Passthru(
	ctx context.Context,
	req *dsslmsg.HTTPRequest,
	s *Settings,
) (resp *dsslmsg.HTTPResponse, err error) {
	defer func() { err = errors.Annotate(err, "passthru: %w") }()

	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, err
	} else if u.Host == "" {
		return nil, fmt.Errorf("target %q: %w: host", s.URL, errors.ErrEmptyValue)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		u.Scheme = "http"
	}

	if !c.guard.IsSafe(ctx, u.Hostname()) {
		return nil, fmt.Errorf("target %q: %w", u.Hostname(), ErrUnsafe)
	}

	httpReq, err := c.outboundRequest(ctx, req, u, s)
	if err != nil {
		return nil, err
	}

	httpCli := &http.Client{
		Timeout: timeout(s),
		CheckRedirect: func(_ *http.Request, _ []*http.Request) (err error) {
			return http.ErrUseLastResponse
		},
	}
	if s.SkipTLSCheck {
		httpCli.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	httpResp, err := httpCli.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, httpResp.Body.Close()) }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, dssldrf.MaxHTTPBodyLen))
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &dsslmsg.HTTPResponse{
		Headers: headers,
		Body:    string(body),
		Code:    httpResp.StatusCode,
	}, nil
}

// outboundRequest builds the upstream request for req directed at u.
func (c *Client) outboundRequest(
	ctx context.Context,
	req *dsslmsg.HTTPRequest,
	u *url.URL,
	s *Settings,
) (httpReq *http.Request, err error) {
	body := req.Body
	if req.BodyB64 != "" {
		raw, decErr := base64.StdEncoding.DecodeString(req.BodyB64)
		if decErr != nil {
			return nil, fmt.Errorf("decoding body: %w", decErr)
		}

		body = string(raw)
	}

	body = applySubs(body, s.Subs)

	target := u.Scheme + "://" + u.Host + req.Path
	httpReq, err = http.NewRequestWithContext(ctx, req.Method, target, strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		if strings.EqualFold(k, "Host") || strings.EqualFold(k, "Content-Length") {
			continue
		}

		httpReq.Header.Set(k, applySubs(v, s.Subs))
	}

	if !s.SkipXFF {
		if _, ok := req.Header("X-Forwarded-For"); !ok {
			httpReq.Header.Set("X-Forwarded-For", req.Client)
		}
	}

	return httpReq, nil
}

// applySubs performs every substring substitution of subs over s.
func applySubs(s string, subs map[string]string) (res string) {
	for from, to := range subs {
		s = strings.ReplaceAll(s, from, to)
	}

	return s
}

// timeout returns the response timeout of s, falling back to the default for
// out-of-range values.
func timeout(s *Settings) (d time.Duration) {
	ms := s.TimeoutMS
	if ms <= 0 || ms > MaxTimeoutMS {
		ms = DefaultTimeoutMS
	}

	return time.Duration(ms) * time.Millisecond
}
