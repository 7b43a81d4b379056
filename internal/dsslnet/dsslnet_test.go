package dsslnet_test

import (
	"strings"
	"testing"

	"github.com/dssldrf/dusseldorf/internal/dsslnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFQDN(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a.", 125) + "abc"
	require.Len(t, longName, 253)

	testCases := []struct {
		name       string
		in         string
		want       string
		wantErrMsg string
	}{{
		name: "simple",
		in:   "foo.example.com",
		want: "foo.example.com",
	}, {
		name: "mixed_case_trailing_dot",
		in:   "FoO.ExAmPlE.CoM.",
		want: "foo.example.com",
	}, {
		name: "idna",
		in:   "bücher.example",
		want: "xn--bcher-kva.example",
	}, {
		name: "max_len",
		in:   longName,
		want: longName,
	}, {
		name:       "too_long",
		in:         "a" + longName,
		want:       "",
		wantErrMsg: "too long: got 254 octets, max 253",
	}, {
		name:       "empty",
		in:         "",
		want:       "",
		wantErrMsg: "empty value",
	}, {
		name:       "only_dot",
		in:         ".",
		want:       "",
		wantErrMsg: "empty value",
	}, {
		name:       "empty_label",
		in:         "foo..example",
		want:       "",
		wantErrMsg: "empty value",
	}, {
		name:       "long_label",
		in:         strings.Repeat("a", 64) + ".example",
		want:       "",
		wantErrMsg: "too long: got 64 octets, max 63",
	}, {
		name:       "bad_char",
		in:         "foo_bar.example",
		want:       "",
		wantErrMsg: `bad character '_'`,
	}, {
		name:       "leading_hyphen",
		in:         "-foo.example",
		want:       "",
		wantErrMsg: "leading or trailing hyphen",
	}, {
		name:       "trailing_hyphen",
		in:         "foo-.example",
		want:       "",
		wantErrMsg: "leading or trailing hyphen",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := dsslnet.NormalizeFQDN(tc.in)
			if tc.wantErrMsg == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)

				assert.Contains(t, err.Error(), tc.wantErrMsg)
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInDomain(t *testing.T) {
	t.Parallel()

	assert.True(t, dsslnet.InDomain("d.test", "d.test"))
	assert.True(t, dsslnet.InDomain("foo.d.test", "d.test"))
	assert.True(t, dsslnet.InDomain("a.b.d.test", "d.test"))
	assert.False(t, dsslnet.InDomain("food.test", "d.test"))
	assert.False(t, dsslnet.InDomain("d.test.evil.example", "d.test"))
}

func TestMatchZone(t *testing.T) {
	t.Parallel()

	zones := []string{"z.d.test", "deep.z.d.test", "other.d.test"}

	assert.Equal(t, "z.d.test", dsslnet.MatchZone("z.d.test", zones))
	assert.Equal(t, "z.d.test", dsslnet.MatchZone("foo.z.d.test", zones))
	assert.Equal(t, "deep.z.d.test", dsslnet.MatchZone("x.deep.z.d.test", zones))
	assert.Equal(t, "", dsslnet.MatchZone("nope.d.test", zones))
	assert.Equal(t, "", dsslnet.MatchZone("d.test", zones))
}
