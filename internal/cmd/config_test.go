package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()

		c, err := parseConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.NoError(t, err)
		require.NoError(t, c.Validate())

		assert.Equal(t, defaultCAAValue, c.Responder.CAAValue)
		assert.Equal(t, uint32(defaultDNSTTL), c.Responder.DefaultTTL)
	})

	t.Run("overlay", func(t *testing.T) {
		t.Parallel()

		confPath := filepath.Join(t.TempDir(), "config.yaml")
		conf := "responder:\n" +
			"  caa_value: 'ca.example'\n" +
			"  contact_email: 'security@example.com'\n" +
			"  soa_serial: 2026010101\n" +
			"  default_ttl: 60\n"
		require.NoError(t, os.WriteFile(confPath, []byte(conf), 0o644))

		c, err := parseConfig(confPath)
		require.NoError(t, err)
		require.NoError(t, c.Validate())

		assert.Equal(t, "ca.example", c.Responder.CAAValue)
		assert.Equal(t, "security@example.com", c.Responder.ContactEmail)
		assert.Equal(t, uint32(2026010101), c.Responder.SOASerial)
		assert.Equal(t, uint32(60), c.Responder.DefaultTTL)
	})

	t.Run("bad_ttl", func(t *testing.T) {
		t.Parallel()

		confPath := filepath.Join(t.TempDir(), "config.yaml")
		conf := "responder:\n" +
			"  caa_value: 'ca.example'\n" +
			"  default_ttl: 0\n"
		require.NoError(t, os.WriteFile(confPath, []byte(conf), 0o644))

		c, err := parseConfig(confPath)
		require.NoError(t, err)
		assert.Error(t, c.Validate())
	})
}
