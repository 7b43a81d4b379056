// Package dssldrf contains common entities and interfaces of the Dusseldorf
// data plane.
package dssldrf

// Protocol is the network protocol of a listener, a rule, and a recorded
// interaction.
type Protocol string

// Protocol values.  Rules are stored with these exact strings in the
// networkprotocol field, so they must not change.
const (
	ProtocolDNS   Protocol = "dns"
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// MaxHTTPBodyLen is the maximum length, in bytes, of an HTTP request body,
// both inbound and on the passthrough path.
const MaxHTTPBodyLen = 10 * 1024 * 1024

// MaxRulePriority and MinRulePriority are the inclusive bounds of
// [Rule.Priority].
const (
	MinRulePriority = 1
	MaxRulePriority = 1000
)
