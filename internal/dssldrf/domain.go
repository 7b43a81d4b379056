package dssldrf

import (
	"fmt"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// Domain is a parent DNS suffix the platform owns.  Zones are created under
// domains by the management API; the data plane only reads them.
type Domain struct {
	// Name is the FQDN of the domain, lowercase, without a trailing dot.
	Name string

	// PublicIPs are the public IPv4 addresses that default A and NS answers
	// under this domain are synthesized from.
	PublicIPs []netip.Addr
}

// type check
var _ validate.Interface = (*Domain)(nil)

// Validate implements the [validate.Interface] interface for *Domain.
func (d *Domain) Validate() (err error) {
	if d == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("name", d.Name),
		validate.NotEmptySlice("public_ips", d.PublicIPs),
	}

	for i, ip := range d.PublicIPs {
		if !ip.Is4() {
			errs = append(errs, fmt.Errorf("public_ips: at index %d: not an ipv4 address", i))
		}
	}

	return errors.Join(errs...)
}
