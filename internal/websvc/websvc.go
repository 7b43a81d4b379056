// Package websvc is the HTTP and HTTPS listener of the Dusseldorf data
// plane.  It accepts arbitrary requests to the registered zones, answers
// them from the zone's rules, and records the interactions.  Requests
// outside the registered domains get a deliberately empty answer.
package websvc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/service"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// readTimeout is the timeout of reading a request from a connection.
const readTimeout = 5 * time.Second

// Config is the configuration of the web listener.
type Config struct {
	// Logger is used for logging the operation of the listener.  It must not
	// be nil.
	Logger *slog.Logger

	// ErrColl collects listener errors.  It must not be nil.
	ErrColl errcoll.Interface

	// Storage provides domains and zones.  It must not be nil.
	Storage storage.Interface

	// Engine evaluates the zone rules.  It must not be nil.
	Engine *rules.Engine

	// Recorder persists the interactions.  It must not be nil.
	Recorder recorder.Interface

	// TLSConf, when not nil, makes the listener serve HTTPS.
	TLSConf *tls.Config

	// Addr is the address the listener binds, for example "0.0.0.0:80".  It
	// must not be empty.
	Addr string
}

// Service is the web listener.
type Service struct {
	logger  *slog.Logger
	errColl errcoll.Interface
	tlsConf *tls.Config
	addr    string

	srv *http.Server
}

// New returns a new web listener.  c must not be nil.
func New(c *Config) (svc *Service) {
	h := &handler{
		logger:   c.Logger,
		storage:  c.Storage,
		engine:   c.Engine,
		recorder: c.Recorder,
		tls:      c.TLSConf != nil,
	}

	return &Service{
		logger:  c.Logger,
		errColl: c.ErrColl,
		tlsConf: c.TLSConf,
		addr:    c.Addr,
		srv: &http.Server{
			Handler:     h,
			ReadTimeout: readTimeout,
		},
	}
}

// type check
var _ service.Interface = (*Service)(nil)

// Start implements the [service.Interface] interface for *Service.  A bind
// failure is returned immediately; serving happens in the background.
func (svc *Service) Start(ctx context.Context) (err error) {
	lsnr, err := net.Listen("tcp", svc.addr)
	if err != nil {
		return fmt.Errorf("websvc: binding %s: %w", svc.addr, err)
	}

	if svc.tlsConf != nil {
		lsnr = tls.NewListener(lsnr, svc.tlsConf)
	}

	go func() {
		serveErr := svc.srv.Serve(lsnr)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errcoll.Collect(ctx, svc.errColl, svc.logger, "websvc: serving", serveErr)
		}
	}()

	svc.logger.InfoContext(ctx, "listening", "addr", svc.addr, "tls", svc.tlsConf != nil)

	return nil
}

// Shutdown implements the [service.Interface] interface for *Service.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	defer svc.logger.InfoContext(ctx, "shut down")

	return svc.srv.Shutdown(ctx)
}

// NewTLSConfig loads the certificate pair and returns a TLS configuration
// restricted to modern protocol versions and cipher suites.
func NewTLSConfig(certFile, keyFile string) (conf *tls.Config, err error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("websvc: loading certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}, nil
}
