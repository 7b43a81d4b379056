package dssldrf

// Interaction is a persisted (request, response) pair.  Interactions are
// append-only; the store assigns Time at insertion.
type Interaction struct {
	// Zone is the FQDN of the zone the request resolved to.
	Zone string

	// FQDN is the FQDN the request was sent to.
	FQDN string

	// Protocol is the network protocol of the interaction.
	Protocol Protocol

	// ClientIP is the textual form of the remote address.
	ClientIP string

	// Request and Response are the JSON-serialized request and response.
	Request  string
	Response string

	// ReqSummary and RespSummary are short human-readable renderings, for
	// example "A/foo.zone.example" and "1.2.3.4".
	ReqSummary  string
	RespSummary string

	// Time is the Unix timestamp, in seconds, assigned at insertion.  Equal
	// timestamps for concurrent inserts are expected and legal.
	Time int64
}
