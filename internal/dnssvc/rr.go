package dnssvc

import (
	"fmt"
	"net"
	"strconv"

	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/miekg/dns"
)

// newRR synthesizes the answer record from resp.  Unsupported answer types
// degrade to an empty TXT record; invalid A and AAAA data degrade to the
// zero address.
func newRR(resp *dsslmsg.DNSResponse) (rr dns.RR) {
	hdr := dns.RR_Header{
		Name:   dns.Fqdn(resp.RName),
		Rrtype: dns.StringToType[resp.RType],
		Class:  dns.ClassINET,
		Ttl:    resp.TTL,
	}
	d := resp.RData

	switch resp.RType {
	case "A":
		ip := net.ParseIP(rdataString(d, "ip"))
		if ip = ip.To4(); ip == nil {
			ip = net.IPv4zero.To4()
		}

		return &dns.A{Hdr: hdr, A: ip}
	case "AAAA":
		ip := net.ParseIP(rdataString(d, "ip"))
		if ip == nil || ip.To4() != nil {
			ip = net.IPv6zero
		}

		return &dns.AAAA{Hdr: hdr, AAAA: ip}
	case "CNAME":
		return &dns.CNAME{Hdr: hdr, Target: dns.Fqdn(rdataString(d, "cname"))}
	case "MX":
		return &dns.MX{
			Hdr:        hdr,
			Preference: uint16(rdataUint(d, "priority")),
			Mx:         dns.Fqdn(rdataString(d, "name")),
		}
	case "NS":
		return &dns.NS{Hdr: hdr, Ns: dns.Fqdn(rdataString(d, "ns"))}
	case "CAA":
		return &dns.CAA{
			Hdr:   hdr,
			Flag:  uint8(rdataUint(d, "flags")),
			Tag:   rdataString(d, "tag"),
			Value: rdataString(d, "value"),
		}
	case "SOA":
		return newSOA(hdr, d)
	case "TXT":
		return &dns.TXT{Hdr: hdr, Txt: []string{rdataString(d, "txt")}}
	default:
		hdr.Rrtype = dns.TypeTXT

		return &dns.TXT{Hdr: hdr, Txt: []string{}}
	}
}

// newSOA synthesizes an SOA record from the answer data.  The times array
// carries serial, refresh, retry, expire, and minimum, in that order.
func newSOA(hdr dns.RR_Header, d map[string]any) (rr dns.RR) {
	soa := &dns.SOA{
		Hdr:  hdr,
		Ns:   dns.Fqdn(rdataString(d, "mname")),
		Mbox: dns.Fqdn(rdataString(d, "rname")),
	}

	times, _ := d["times"].([]any)
	fields := []*uint32{&soa.Serial, &soa.Refresh, &soa.Retry, &soa.Expire, &soa.Minttl}
	for i, f := range fields {
		if i < len(times) {
			*f = uint32(anyUint(times[i]))
		}
	}

	return soa
}

// contactCAA returns the contact records appended to apex CAA answers.
func contactCAA(apex, contact string) (rrs []dns.RR) {
	hdr := dns.RR_Header{
		Name:   dns.Fqdn(apex),
		Rrtype: dns.TypeCAA,
		Class:  dns.ClassINET,
		Ttl:    0,
	}

	return []dns.RR{
		&dns.CAA{Hdr: hdr, Flag: 0, Tag: "contactemail", Value: contact},
		&dns.CAA{Hdr: hdr, Flag: 0, Tag: "iodef", Value: "mailto:" + contact},
	}
}

// rdataString returns the value under key as a string.
func rdataString(d map[string]any, key string) (s string) {
	switch v := d[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// rdataUint returns the value under key as an unsigned integer.
func rdataUint(d map[string]any, key string) (n uint64) {
	return anyUint(d[key])
}

// anyUint converts a JSON-decoded numeric value to an unsigned integer.
func anyUint(v any) (n uint64) {
	switch v := v.(type) {
	case float64:
		if v < 0 {
			return 0
		}

		return uint64(v)
	case int:
		if v < 0 {
			return 0
		}

		return uint64(v)
	case uint32:
		return uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}

		return n
	default:
		return 0
	}
}
