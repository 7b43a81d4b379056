package dssldrf

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// Rule is an ordered response program for a (zone, protocol) pair.  A rule
// matches a request only when every predicate component is satisfied; its
// result components then run in stored order.
type Rule struct {
	// ID is the UUID of the rule.
	ID string

	// Zone is the FQDN of the zone this rule belongs to.
	Zone string

	// Name is the human-readable name of the rule.
	Name string

	// Protocol is the network protocol this rule applies to.
	Protocol Protocol

	// Priority orders rules within a (zone, protocol) pair, ascending.  It
	// is unique per pair by construction; see [MinRulePriority] and
	// [MaxRulePriority].
	Priority int

	// Components are the predicate and result components in stored order.
	Components []*RuleComponent
}

// RuleComponent is a single predicate or result of a [Rule].
type RuleComponent struct {
	// ID is the UUID of the component.
	ID string

	// ActionName is the catalogue name of the predicate or result, for
	// example "http.method" or "dns.data".
	ActionName string

	// ActionValue is the parameter of the action.  Its syntax depends on
	// ActionName and may be JSON.
	ActionValue string

	// IsPredicate is true for predicates and false for results.
	IsPredicate bool
}

// type check
var _ validate.Interface = (*Rule)(nil)

// Validate implements the [validate.Interface] interface for *Rule.
func (r *Rule) Validate() (err error) {
	if r == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("ruleid", r.ID),
		validate.NotEmpty("zone", r.Zone),
		validate.InRange("priority", r.Priority, MinRulePriority, MaxRulePriority),
	}

	switch r.Protocol {
	case ProtocolDNS, ProtocolHTTP, ProtocolHTTPS:
		// Go on.
	default:
		errs = append(errs, fmt.Errorf(
			"networkprotocol: %w: %q",
			errors.ErrBadEnumValue,
			r.Protocol,
		))
	}

	for i, c := range r.Components {
		if c == nil {
			errs = append(errs, fmt.Errorf("rulecomponents: at index %d: %w", i, errors.ErrNoValue))

			continue
		}

		if c.ActionName == "" {
			errs = append(errs, fmt.Errorf("rulecomponents: at index %d: empty actionname", i))
		}
	}

	return errors.Join(errs...)
}
