package dsslmsg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
)

// summaryPathLen is the maximum length of the path in an HTTP request
// summary.
const summaryPathLen = 20

// HTTPRequest is a single HTTP or HTTPS request.
type HTTPRequest struct {
	// Headers are the request headers.  Repeated headers are collapsed into
	// their last value.
	Headers map[string]string

	// FQDN is the normalized FQDN derived from the Host header.
	FQDN string

	// Domain is the registered domain FQDN lies under, or an empty string.
	Domain string

	// Zone is the FQDN of the zone the request resolved to, or an empty
	// string.
	Zone string

	// Client is the textual form of the client address, without the port.
	Client string

	// Method is the uppercase request method.
	Method string

	// Path is the request path, including the query string.
	Path string

	// Version is the protocol version, for example "HTTP/1.1".
	Version string

	// Body is the request body, if it is valid UTF-8.
	Body string

	// BodyB64 is the base64 encoding of the request body, if it is not
	// valid UTF-8.
	BodyB64 string

	// TLS is true if the request arrived over TLS.
	TLS bool
}

// type check
var _ Request = (*HTTPRequest)(nil)

// RequestFQDN implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) RequestFQDN() (fqdn string) { return r.FQDN }

// DomainFQDN implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) DomainFQDN() (domain string) { return r.Domain }

// ZoneFQDN implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) ZoneFQDN() (zone string) { return r.Zone }

// Protocol implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) Protocol() (proto dssldrf.Protocol) {
	if r.TLS {
		return dssldrf.ProtocolHTTPS
	}

	return dssldrf.ProtocolHTTP
}

// RemoteAddr implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) RemoteAddr() (addr string) { return r.Client }

// Summary implements the [Request] interface for *HTTPRequest.
func (r *HTTPRequest) Summary() (s string) {
	p := r.Path
	if len(p) > summaryPathLen {
		p = p[:summaryPathLen] + ".."
	}

	return r.Method + " " + p
}

// Header returns the value of the header with the given name, matched
// case-insensitively.
func (r *HTTPRequest) Header(name string) (val string, ok bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}

	return "", false
}

// MarshalJSON implements the [json.Marshaler] interface for *HTTPRequest.
func (r *HTTPRequest) MarshalJSON() (b []byte, err error) {
	return json.Marshal(struct {
		Headers map[string]string `json:"headers"`
		Method  string            `json:"method"`
		Path    string            `json:"path"`
		Version string            `json:"version"`
		Body    string            `json:"body,omitempty"`
		BodyB64 string            `json:"body_b64,omitempty"`
		TLS     bool              `json:"tls"`
	}{
		Headers: r.Headers,
		Method:  r.Method,
		Path:    r.Path,
		Version: r.Version,
		Body:    r.Body,
		BodyB64: r.BodyB64,
		TLS:     r.TLS,
	})
}

// HTTPResponse is the data an HTTP reply is emitted from.
type HTTPResponse struct {
	// Headers are the response headers.
	Headers map[string]string

	// Body is the response body.
	Body string

	// Code is the response status code.
	Code int
}

// NewEmptyHTTPResponse returns the Empty response: status 200, no headers,
// empty body.  It is both the default for matched zones without rules and
// the deliberate non-answer for requests outside registered zones.
func NewEmptyHTTPResponse() (resp *HTTPResponse) {
	return &HTTPResponse{
		Headers: map[string]string{},
		Code:    200,
	}
}

// type check
var _ Response = (*HTTPResponse)(nil)

// Summary implements the [Response] interface for *HTTPResponse.
func (r *HTTPResponse) Summary() (s string) {
	return fmt.Sprintf("HTTP %d", r.Code)
}

// MarshalJSON implements the [json.Marshaler] interface for *HTTPResponse.
func (r *HTTPResponse) MarshalJSON() (b []byte, err error) {
	return json.Marshal(struct {
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
		Code    int               `json:"code"`
	}{
		Headers: r.Headers,
		Body:    r.Body,
		Code:    r.Code,
	})
}
