package dssldrf

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// Zone is a customer-owned label under a [Domain].  The data plane treats
// zones as immutable references; creation and deletion happen in the
// management API.
type Zone struct {
	// FQDN is the unique, lowercase FQDN of the zone.  It is always
	// "<label>.<domain>" for an existing domain.
	FQDN string

	// Domain is the FQDN of the parent domain.
	Domain string
}

// type check
var _ validate.Interface = (*Zone)(nil)

// Validate implements the [validate.Interface] interface for *Zone.
func (z *Zone) Validate() (err error) {
	if z == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("fqdn", z.FQDN),
		validate.NotEmpty("domain", z.Domain),
	}

	if z.FQDN != "" && z.Domain != "" && !strings.HasSuffix(z.FQDN, "."+z.Domain) {
		errs = append(errs, fmt.Errorf("fqdn %q: not under domain %q", z.FQDN, z.Domain))
	}

	return errors.Join(errs...)
}

// CheckZoneNesting returns an error if newFQDN is equal to, nested under, or a
// parent of any zone in existing.  Nested zones are forbidden so that a
// request FQDN always resolves to exactly one zone.
func CheckZoneNesting(newFQDN string, existing []string) (err error) {
	for _, fqdn := range existing {
		switch {
		case newFQDN == fqdn:
			return fmt.Errorf("zone %q: %w", newFQDN, errors.ErrDuplicated)
		case strings.HasSuffix(newFQDN, "."+fqdn):
			return fmt.Errorf("zone %q: nested under existing zone %q", newFQDN, fqdn)
		case strings.HasSuffix(fqdn, "."+newFQDN):
			return fmt.Errorf("zone %q: parent of existing zone %q", newFQDN, fqdn)
		}
	}

	return nil
}
