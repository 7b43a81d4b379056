package websvc

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/dsslnet"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// serverName is the value of the Server response header.
const serverName = "dusseldorf"

// allowedMethods are the request methods the listener accepts.
var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
	http.MethodHead:    {},
}

// handler processes the requests of [Service].
type handler struct {
	logger   *slog.Logger
	storage  storage.Interface
	engine   *rules.Engine
	recorder recorder.Interface
	tls      bool
}

// type check
var _ http.Handler = (*handler)(nil)

// ServeHTTP implements the [http.Handler] interface for *handler.
func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, ok := allowedMethods[r.Method]; !ok {
		h.refuse(w, r, http.StatusMethodNotAllowed)

		return
	}

	if !strings.HasPrefix(r.RequestURI, "/") {
		h.refuse(w, r, http.StatusBadRequest)

		return
	}

	if r.ContentLength > dssldrf.MaxHTTPBodyLen {
		h.refuse(w, r, http.StatusRequestEntityTooLarge)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, dssldrf.MaxHTTPBodyLen))
	if err != nil {
		h.refuse(w, r, http.StatusRequestEntityTooLarge)

		return
	}

	req, ok := h.newRequest(r, body)
	if !ok {
		// Outside the registered domains or under no zone.  Answer with the
		// Empty response and record nothing, so that probing requests learn
		// nothing about the domain list.
		h.write(ctx, w, r, dsslmsg.NewEmptyHTTPResponse(), start)

		return
	}

	resp := h.response(ctx, req)
	h.write(ctx, w, r, resp, start)

	recStart := time.Now()
	h.recorder.Record(ctx, req, resp)
	h.logger.DebugContext(
		ctx,
		"handled request",
		"fqdn", req.FQDN,
		"method", req.Method,
		"handle_time", time.Since(start),
		"record_time", time.Since(recStart),
	)
}

// response evaluates the rules for req.  Evaluation failures degrade to the
// Empty response.
func (h *handler) response(
	ctx context.Context,
	req *dsslmsg.HTTPRequest,
) (resp *dsslmsg.HTTPResponse) {
	engResp, err := h.engine.Response(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluating rules", slogutil.KeyError, err)

		return dsslmsg.NewEmptyHTTPResponse()
	}

	resp, ok := engResp.(*dsslmsg.HTTPResponse)
	if !ok {
		return dsslmsg.NewEmptyHTTPResponse()
	}

	return resp
}

// newRequest builds the request entity.  ok is false when the request Host
// does not resolve to a registered zone.
func (h *handler) newRequest(
	r *http.Request,
	body []byte,
) (req *dsslmsg.HTTPRequest, ok bool) {
	ctx := r.Context()

	fqdn, err := dsslnet.NormalizeFQDN(stripPort(r.Host))
	if err != nil {
		return nil, false
	}

	domains, err := h.storage.Domains(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing domains", slogutil.KeyError, err)

		return nil, false
	}

	domain := dsslnet.MatchDomain(fqdn, domains)
	if domain == "" {
		return nil, false
	}

	zone, err := h.storage.ZoneForFQDN(ctx, fqdn)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolving zone", slogutil.KeyError, err)

		return nil, false
	} else if zone == "" {
		return nil, false
	}

	headers := map[string]string{
		"Host": r.Host,
	}
	for k, vs := range r.Header {
		headers[k] = vs[len(vs)-1]
	}

	req = &dsslmsg.HTTPRequest{
		Headers: headers,
		FQDN:    fqdn,
		Domain:  domain,
		Zone:    zone,
		Client:  stripPort(r.RemoteAddr),
		Method:  r.Method,
		Path:    r.RequestURI,
		Version: r.Proto,
		TLS:     h.tls,
	}

	if utf8.Valid(body) {
		req.Body = string(body)
	} else {
		req.BodyB64 = base64.StdEncoding.EncodeToString(body)
	}

	return req, true
}

// write emits resp.  The status code is clamped to the valid range; a
// client-supplied Content-Length header is dropped and the real one is
// always emitted.
func (h *handler) write(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	resp *dsslmsg.HTTPResponse,
	start time.Time,
) {
	hdr := w.Header()
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}

		hdr.Set(k, v)
	}

	hdr.Set("Server", serverName)
	hdr.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	code := resp.Code
	if code < 100 || code > 599 {
		code = http.StatusOK
	}

	w.WriteHeader(code)
	_, err := io.WriteString(w, resp.Body)
	if err != nil {
		h.logger.DebugContext(ctx, "writing response", slogutil.KeyError, err)
	}

	metrics.WebSvcRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
	metrics.WebSvcRequestDuration.Observe(time.Since(start).Seconds())
}

// refuse replies with a bare status code.
func (h *handler) refuse(w http.ResponseWriter, r *http.Request, code int) {
	w.Header().Set("Server", serverName)
	http.Error(w, http.StatusText(code), code)

	metrics.WebSvcRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
}

// stripPort removes the port from a "host:port" address, if present.
func stripPort(hostport string) (host string) {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}

	return host
}
