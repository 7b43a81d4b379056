package dssldrf_test

import (
	"net/netip"
	"testing"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/stretchr/testify/assert"
)

func TestDomain_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		domain  *dssldrf.Domain
		name    string
		wantErr bool
	}{{
		domain: &dssldrf.Domain{
			Name:      "d.test",
			PublicIPs: []netip.Addr{netip.MustParseAddr("1.1.1.1")},
		},
		name:    "ok",
		wantErr: false,
	}, {
		domain:  nil,
		name:    "nil",
		wantErr: true,
	}, {
		domain: &dssldrf.Domain{
			Name: "d.test",
		},
		name:    "no_ips",
		wantErr: true,
	}, {
		domain: &dssldrf.Domain{
			Name:      "d.test",
			PublicIPs: []netip.Addr{netip.MustParseAddr("2001:db8::1")},
		},
		name:    "ipv6_pool",
		wantErr: true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.domain.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestZone_Validate(t *testing.T) {
	t.Parallel()

	z := &dssldrf.Zone{FQDN: "z.d.test", Domain: "d.test"}
	assert.NoError(t, z.Validate())

	z = &dssldrf.Zone{FQDN: "z.other.test", Domain: "d.test"}
	assert.Error(t, z.Validate())
}

func TestCheckZoneNesting(t *testing.T) {
	t.Parallel()

	existing := []string{"z.d.test", "other.d.test"}

	assert.NoError(t, dssldrf.CheckZoneNesting("fresh.d.test", existing))
	assert.Error(t, dssldrf.CheckZoneNesting("z.d.test", existing), "duplicate")
	assert.Error(t, dssldrf.CheckZoneNesting("sub.z.d.test", existing), "nested")
	assert.Error(t, dssldrf.CheckZoneNesting("d.test", existing), "parent")
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	r := &dssldrf.Rule{
		ID:       "5a6a57a9-d8ae-4d18-8b73-c94eec07b8e9",
		Zone:     "z.d.test",
		Protocol: dssldrf.ProtocolHTTP,
		Priority: 10,
		Components: []*dssldrf.RuleComponent{{
			ID:          "c1",
			ActionName:  "http.code",
			ActionValue: "418",
		}},
	}
	assert.NoError(t, r.Validate())

	r.Priority = 0
	assert.Error(t, r.Validate())

	r.Priority = 10
	r.Protocol = "icmp"
	assert.Error(t, r.Validate())
}
