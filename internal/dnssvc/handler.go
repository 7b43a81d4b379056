package dnssvc

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/dsslnet"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
	"github.com/miekg/dns"
)

// queryTimeout bounds the handling of a single query.
const queryTimeout = 5 * time.Second

// queriesPerLogLine is how often the periodic query-count line is logged.
const queriesPerLogLine = 1000

// versionBindName is the reserved query name answered with the server name.
const versionBindName = "version.bind"

// serverName is the TXT answer to version.bind queries.
const serverName = "dusseldorf"

// handler processes the DNS queries of [Service].
type handler struct {
	logger      *slog.Logger
	storage     storage.Interface
	constructor *dsslmsg.Constructor
	engine      *rules.Engine
	recorder    recorder.Interface

	queries atomic.Uint64
}

// type check
var _ dns.Handler = (*handler)(nil)

// ServeDNS implements the [dns.Handler] interface for *handler.
func (h *handler) ServeDNS(w dns.ResponseWriter, m *dns.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if len(m.Question) == 0 {
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeFormatError))

		return
	}

	q := m.Question[0]
	qname := strings.ToLower(strings.TrimSuffix(q.Name, "."))
	qtype := dns.TypeToString[q.Qtype]

	metrics.DNSSvcQueriesTotal.WithLabelValues(qtype).Inc()
	if n := h.queries.Add(1); n%queriesPerLogLine == 0 {
		h.logger.InfoContext(ctx, "handled queries", "count", n)
	}

	if qname == versionBindName {
		h.replyVersionBind(ctx, w, m, q)

		return
	}

	h.resolve(ctx, w, m, qname, qtype)
}

// resolve answers a regular query.
func (h *handler) resolve(
	ctx context.Context,
	w dns.ResponseWriter,
	m *dns.Msg,
	qname string,
	qtype string,
) {
	start := time.Now()

	domains, err := h.storage.Domains(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing domains", slogutil.KeyError, err)
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeServerFailure))

		return
	}

	domain := dsslnet.MatchDomain(qname, domains)
	if domain == "" {
		metrics.DNSSvcUnansweredTotal.WithLabelValues("not_registered").Inc()
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeNameError))

		return
	}

	if isReserved(qname, domain) {
		h.replyReserved(ctx, w, m, domain, qname, qtype)

		return
	}

	zone, err := h.storage.ZoneForFQDN(ctx, qname)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolving zone", slogutil.KeyError, err)
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeServerFailure))

		return
	}

	if zone == "" {
		// Inside a registered domain but under no zone: answer benignly so
		// that the domain list is not revealed, but record nothing.
		h.replyDefault(ctx, w, m, domain, qname, qtype)

		return
	}

	req := &dsslmsg.DNSRequest{
		FQDN:   qname,
		Domain: domain,
		Zone:   zone,
		Client: clientIP(w),
		QType:  qtype,
	}

	resp, err := h.engine.Response(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluating rules", slogutil.KeyError, err)
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeServerFailure))

		return
	}

	resolveDur := time.Since(start)
	metrics.DNSSvcResolveDuration.Observe(resolveDur.Seconds())

	var dnsResp *dsslmsg.DNSResponse
	reply := &dns.Msg{}
	if resp == nil {
		metrics.DNSSvcUnansweredTotal.WithLabelValues("unsupported_type").Inc()
		reply.SetRcode(m, dns.RcodeNameError)
	} else {
		dnsResp = resp.(*dsslmsg.DNSResponse)
		reply.SetReply(m)
		reply.Authoritative = true
		reply.Answer = append(reply.Answer, newRR(dnsResp))
	}

	h.reply(ctx, w, reply)

	recStart := time.Now()
	h.recorder.Record(ctx, req, respOrNil(dnsResp))
	h.logger.DebugContext(
		ctx,
		"handled query",
		"fqdn", qname,
		"qtype", qtype,
		"resolve_time", resolveDur,
		"record_time", time.Since(recStart),
	)
}

// respOrNil avoids a non-nil interface value holding a nil pointer.
func respOrNil(resp *dsslmsg.DNSResponse) (r dsslmsg.Response) {
	if resp == nil {
		return nil
	}

	return resp
}

// isReserved returns true if qname is the domain apex or one of its reserved
// nameserver names.
func isReserved(qname, domain string) (ok bool) {
	return qname == domain || qname == "ns1."+domain || qname == "ns2."+domain
}

// replyReserved answers an apex, ns1, or ns2 query with the per-type default
// answer.  CAA queries on the apex also carry the contact records.
func (h *handler) replyReserved(
	ctx context.Context,
	w dns.ResponseWriter,
	m *dns.Msg,
	domain string,
	qname string,
	qtype string,
) {
	resp, err := h.constructor.DefaultDNSResponse(ctx, domain, qname, qtype)
	if err != nil {
		h.logger.ErrorContext(ctx, "building default answer", slogutil.KeyError, err)
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeServerFailure))

		return
	}

	if resp == nil {
		metrics.DNSSvcUnansweredTotal.WithLabelValues("unsupported_type").Inc()
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeNameError))

		return
	}

	reply := (&dns.Msg{}).SetReply(m)
	reply.Authoritative = true
	reply.Answer = append(reply.Answer, newRR(resp))

	if qtype == "CAA" && qname == domain {
		reply.Answer = append(reply.Answer, contactCAA(qname, h.constructor.Contact(domain))...)
	}

	h.reply(ctx, w, reply)
}

// replyDefault answers a query under a registered domain that resolved to no
// zone.
func (h *handler) replyDefault(
	ctx context.Context,
	w dns.ResponseWriter,
	m *dns.Msg,
	domain string,
	qname string,
	qtype string,
) {
	resp, err := h.constructor.DefaultDNSResponse(ctx, domain, qname, qtype)
	if err != nil {
		h.logger.ErrorContext(ctx, "building default answer", slogutil.KeyError, err)
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeServerFailure))

		return
	}

	if resp == nil {
		metrics.DNSSvcUnansweredTotal.WithLabelValues("unsupported_type").Inc()
		h.reply(ctx, w, (&dns.Msg{}).SetRcode(m, dns.RcodeNameError))

		return
	}

	reply := (&dns.Msg{}).SetReply(m)
	reply.Authoritative = true
	reply.Answer = append(reply.Answer, newRR(resp))

	h.reply(ctx, w, reply)
}

// replyVersionBind answers the version.bind query with the server name.
func (h *handler) replyVersionBind(
	ctx context.Context,
	w dns.ResponseWriter,
	m *dns.Msg,
	q dns.Question,
) {
	reply := (&dns.Msg{}).SetReply(m)
	reply.Answer = append(reply.Answer, &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   q.Name,
			Rrtype: dns.TypeTXT,
			Class:  q.Qclass,
			Ttl:    0,
		},
		Txt: []string{serverName},
	})

	h.reply(ctx, w, reply)
}

// reply writes the reply, logging a failure.
func (h *handler) reply(ctx context.Context, w dns.ResponseWriter, m *dns.Msg) {
	err := w.WriteMsg(m)
	if err != nil {
		h.logger.WarnContext(ctx, "writing reply", slogutil.KeyError, err)
	}
}

// clientIP returns the textual client address, without the port.
func clientIP(w dns.ResponseWriter) (ip string) {
	switch addr := w.RemoteAddr().(type) {
	case *net.UDPAddr:
		return addr.IP.String()
	case *net.TCPAddr:
		return addr.IP.String()
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}

		return host
	}
}
