// Package dsslnet contains FQDN normalization and matching helpers for the
// Dusseldorf data plane.
package dsslnet

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/idna"
)

// MaxFQDNLen is the maximum length of a normalized FQDN, without the trailing
// dot.
const MaxFQDNLen = 253

// maxLabelLen is the maximum length of a single DNS label.
const maxLabelLen = 63

// NormalizeFQDN lowercases fqdn, strips a single trailing dot, IDNA-encodes
// non-ASCII input, and validates the result as a DNS name: the total length
// must not exceed [MaxFQDNLen], each label must be non-empty, at most 63
// octets, consist of [a-z0-9-], and neither start nor end with a hyphen.
func NormalizeFQDN(fqdn string) (norm string, err error) {
	defer func() { err = errors.Annotate(err, "normalizing %q: %w", fqdn) }()

	norm = strings.ToLower(fqdn)
	norm = strings.TrimSuffix(norm, ".")
	if norm == "" {
		return "", errors.ErrEmptyValue
	}

	if !isASCII(norm) {
		norm, err = idna.ToASCII(norm)
		if err != nil {
			return "", fmt.Errorf("idna: %w", err)
		}
	}

	if l := len(norm); l > MaxFQDNLen {
		return "", fmt.Errorf("too long: got %d octets, max %d", l, MaxFQDNLen)
	}

	for _, label := range strings.Split(norm, ".") {
		err = validateLabel(label)
		if err != nil {
			return "", fmt.Errorf("label %q: %w", label, err)
		}
	}

	return norm, nil
}

// isASCII returns true if s contains only ASCII characters.
func isASCII(s string) (ok bool) {
	for i := range len(s) {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}

// validateLabel returns an error if label is not a valid DNS label.
func validateLabel(label string) (err error) {
	switch l := len(label); {
	case l == 0:
		return errors.ErrEmptyValue
	case l > maxLabelLen:
		return fmt.Errorf("too long: got %d octets, max %d", l, maxLabelLen)
	}

	if label[0] == '-' || label[len(label)-1] == '-' {
		return errors.Error("leading or trailing hyphen")
	}

	for i := range len(label) {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("bad character %q", c)
		}
	}

	return nil
}

// InDomain returns true if fqdn equals domain or lies under it.  Both
// arguments must already be normalized.
func InDomain(fqdn, domain string) (ok bool) {
	return fqdn == domain || strings.HasSuffix(fqdn, "."+domain)
}

// MatchDomain returns the first domain from domains that contains fqdn, or
// the empty string.  fqdn must already be normalized.
func MatchDomain(fqdn string, domains []string) (domain string) {
	for _, d := range domains {
		if InDomain(fqdn, d) {
			return d
		}
	}

	return ""
}

// MatchZone returns the FQDN of the longest zone from zones that contains
// fqdn, or the empty string.  An exact match always wins.  fqdn must already
// be normalized.
func MatchZone(fqdn string, zones []string) (zone string) {
	for _, z := range zones {
		if fqdn == z {
			return z
		}

		if strings.HasSuffix(fqdn, "."+z) && len(z) > len(zone) {
			zone = z
		}
	}

	return zone
}
