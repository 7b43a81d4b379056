package cmd

import (
	"encoding"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/caarlos0/env/v7"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/version"
	"github.com/getsentry/sentry-go"
)

// environment represents the configuration that is kept in the environment.
type environment struct {
	ConnStr  string `env:"DSSLDRF_CONNSTR,notEmpty"`
	Database string `env:"DSSLDRF_DBNAME" envDefault:"dusseldorf"`

	ConfPath    string `env:"CONFIG_PATH" envDefault:"./config.yaml"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	SentryDSN   string `env:"SENTRY_DSN" envDefault:"stderr"`
	TLSCertFile string `env:"DSSLDRF_TLS_CRT_FILE"`
	TLSKeyFile  string `env:"DSSLDRF_TLS_KEY_FILE"`

	IPv6Pool addrList `env:"DSSLDRF_IPV6"`

	DNSInterface  net.IP `env:"LSTNER_DNS_INTERFACE" envDefault:"0.0.0.0"`
	HTTPInterface net.IP `env:"LSTNER_HTTP_INTERFACE" envDefault:"0.0.0.0"`
	ListenAddr    net.IP `env:"LISTEN_ADDR" envDefault:"127.0.0.1"`

	DNSPort    uint16 `env:"LSTNER_DNS_PORT" envDefault:"53"`
	HTTPPort   uint16 `env:"LSTNER_HTTP_PORT" envDefault:"80"`
	ListenPort uint16 `env:"LISTEN_PORT" envDefault:"8181"`

	Verbosity uint8 `env:"VERBOSE" envDefault:"0"`

	DNSUDPOnly   strictBool `env:"LSTNER_DNS_UDP" envDefault:"1"`
	HTTPTLS      strictBool `env:"LSTNER_HTTP_TLS" envDefault:"0"`
	LogTimestamp strictBool `env:"LOG_TIMESTAMP" envDefault:"1"`
}

// parseEnvironment reads the configuration.
func parseEnvironment() (envs *environment, err error) {
	envs = &environment{}
	err = env.Parse(envs)
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return envs, nil
}

// type check
var _ validate.Interface = (*environment)(nil)

// Validate implements the [validate.Interface] interface for *environment.
func (envs *environment) Validate() (err error) {
	errs := []error{
		validate.NotEmpty("DSSLDRF_CONNSTR", envs.ConnStr),
		validate.NotEmpty("DSSLDRF_DBNAME", envs.Database),
	}

	_, err = slogutil.NewFormat(envs.LogFormat)
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: %w", err))
	}

	_, err = slogutil.VerbosityToLevel(envs.Verbosity)
	if err != nil {
		errs = append(errs, fmt.Errorf("VERBOSE: %w", err))
	}

	if envs.HTTPTLS {
		errs = append(
			errs,
			validate.NotEmpty("DSSLDRF_TLS_CRT_FILE", envs.TLSCertFile),
			validate.NotEmpty("DSSLDRF_TLS_KEY_FILE", envs.TLSKeyFile),
		)
	}

	return errors.Join(errs...)
}

// buildErrColl builds and returns an error collector from environment.
func (envs *environment) buildErrColl() (errColl errcoll.Interface, err error) {
	dsn := envs.SentryDSN
	if dsn == "stderr" {
		return errcoll.NewWriterErrorCollector(os.Stderr), nil
	}

	cli, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
		Release:          version.Version(),
	})
	if err != nil {
		return nil, err
	}

	return errcoll.NewSentryErrorCollector(cli), nil
}

// logger builds the base logger from environment.  envs must be valid.
func (envs *environment) logger() (l *slog.Logger) {
	lvl := errors.Must(slogutil.VerbosityToLevel(envs.Verbosity))

	return slogutil.New(&slogutil.Config{
		// Don't use [slogutil.NewFormat] here, because the value is validated.
		Format:       slogutil.Format(envs.LogFormat),
		AddTimestamp: bool(envs.LogTimestamp),
		Level:        lvl,
	})
}

// addrList is a space-separated list of IP addresses in an environment
// variable.
type addrList []netip.Addr

// type check
var _ encoding.TextUnmarshaler = (*addrList)(nil)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface for
// *addrList.
func (l *addrList) UnmarshalText(b []byte) (err error) {
	fields := strings.Fields(string(b))
	addrs := make([]netip.Addr, 0, len(fields))
	for i, f := range fields {
		addr, parseErr := netip.ParseAddr(f)
		if parseErr != nil {
			return fmt.Errorf("address at index %d: %w", i, parseErr)
		}

		addrs = append(addrs, addr)
	}

	*l = addrs

	return nil
}

// strictBool is a type for booleans that are parsed from the environment more
// strictly than the usual bool.  It only accepts "0" and "1" as valid values.
type strictBool bool

// type check
var _ encoding.TextUnmarshaler = (*strictBool)(nil)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface for
// *strictBool.
func (sb *strictBool) UnmarshalText(b []byte) (err error) {
	if len(b) == 1 {
		switch b[0] {
		case '0':
			*sb = false

			return nil
		case '1':
			*sb = true

			return nil
		default:
			// Go on and return an error.
		}
	}

	return fmt.Errorf("invalid value %q, supported: %q, %q", b, "0", "1")
}
