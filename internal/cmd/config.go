package cmd

import (
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"gopkg.in/yaml.v2"
)

// configuration represents the on-disk configuration of the Dusseldorf data
// plane.  All of it is optional; a missing file falls back to the built-in
// defaults.
type configuration struct {
	// Responder is the configuration of the default answers.
	Responder *responderConfig `yaml:"responder"`
}

// responderConfig is the configuration of the default answers synthesized
// when no rule overrides them.
type responderConfig struct {
	// CAAValue is the CA authorized by default CAA answers.
	CAAValue string `yaml:"caa_value"`

	// ContactEmail is the contact reported in SOA and apex CAA answers.  If
	// empty, "hostmaster@<domain>" is used.
	ContactEmail string `yaml:"contact_email"`

	// SOASerial is the serial of default SOA answers.
	SOASerial uint32 `yaml:"soa_serial"`

	// DefaultTTL is the TTL of default answers, in seconds.
	DefaultTTL uint32 `yaml:"default_ttl"`
}

// Default responder values.
const (
	defaultCAAValue  = "letsencrypt.org"
	defaultSOASerial = 2025022101
	defaultDNSTTL    = 3600
)

// newDefaultConfiguration returns the built-in configuration.
func newDefaultConfiguration() (c *configuration) {
	return &configuration{
		Responder: &responderConfig{
			CAAValue:   defaultCAAValue,
			SOASerial:  defaultSOASerial,
			DefaultTTL: defaultDNSTTL,
		},
	}
}

// type check
var _ validate.Interface = (*configuration)(nil)

// Validate implements the [validate.Interface] interface for *configuration.
func (c *configuration) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	r := c.Responder
	if r == nil {
		return fmt.Errorf("responder: %w", errors.ErrNoValue)
	}

	return errors.Join(
		validate.NotEmpty("responder: caa_value", r.CAAValue),
		validate.Positive("responder: default_ttl", r.DefaultTTL),
	)
}

// parseConfig reads the configuration.  A missing file is not an error and
// yields the built-in defaults.
func parseConfig(confPath string) (c *configuration, err error) {
	// #nosec G304 -- Trust the path to the configuration file that is given
	// from the environment.
	yamlFile, err := os.ReadFile(confPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newDefaultConfiguration(), nil
		}

		return nil, fmt.Errorf("reading config file: %w", err)
	}

	c = newDefaultConfiguration()
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if c.Responder == nil {
		c.Responder = newDefaultConfiguration().Responder
	}

	return c, nil
}
