// Package dnssvc is the DNS listener of the Dusseldorf data plane.  It
// answers every query under the registered domains, either from the zone's
// rules or with synthesized defaults, and records the interactions.
package dnssvc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
	"github.com/miekg/dns"
)

// Config is the configuration of the DNS listener.
type Config struct {
	// Logger is used for logging the operation of the listener.  It must not
	// be nil.
	Logger *slog.Logger

	// ErrColl collects listener errors.  It must not be nil.
	ErrColl errcoll.Interface

	// Storage provides domains and zones.  It must not be nil.
	Storage storage.Interface

	// Constructor builds default answers.  It must not be nil.
	Constructor *dsslmsg.Constructor

	// Engine evaluates the zone rules.  It must not be nil.
	Engine *rules.Engine

	// Recorder persists the interactions.  It must not be nil.
	Recorder recorder.Interface

	// Addr is the address the listener binds, for example "0.0.0.0:53".  It
	// must not be empty.
	Addr string

	// EnableTCP also serves DNS over TCP on Addr.
	EnableTCP bool
}

// Service is the DNS listener.  It serves UDP and, optionally, TCP on the
// same address.
type Service struct {
	logger  *slog.Logger
	errColl errcoll.Interface
	handler *handler
	addr    string
	tcp     bool

	udpSrv *dns.Server
	tcpSrv *dns.Server
}

// New returns a new DNS listener.  c must not be nil.
func New(c *Config) (svc *Service) {
	return &Service{
		logger:  c.Logger,
		errColl: c.ErrColl,
		handler: &handler{
			logger:      c.Logger,
			storage:     c.Storage,
			constructor: c.Constructor,
			engine:      c.Engine,
			recorder:    c.Recorder,
		},
		addr: c.Addr,
		tcp:  c.EnableTCP,
	}
}

// type check
var _ service.Interface = (*Service)(nil)

// Start implements the [service.Interface] interface for *Service.  A bind
// failure is returned immediately; serving happens in the background.
func (svc *Service) Start(ctx context.Context) (err error) {
	pc, err := net.ListenPacket("udp", svc.addr)
	if err != nil {
		return fmt.Errorf("dnssvc: binding udp %s: %w", svc.addr, err)
	}

	svc.udpSrv = &dns.Server{
		PacketConn: pc,
		Handler:    svc.handler,
	}
	go svc.serve(ctx, svc.udpSrv, "udp")

	svc.logger.InfoContext(ctx, "listening udp", "addr", svc.addr)

	if svc.tcp {
		var lsnr net.Listener
		lsnr, err = net.Listen("tcp", svc.addr)
		if err != nil {
			return fmt.Errorf("dnssvc: binding tcp %s: %w", svc.addr, err)
		}

		svc.tcpSrv = &dns.Server{
			Listener: lsnr,
			Handler:  svc.handler,
		}
		go svc.serve(ctx, svc.tcpSrv, "tcp")

		svc.logger.InfoContext(ctx, "listening tcp", "addr", svc.addr)
	}

	return nil
}

// serve runs srv until shutdown, collecting serving errors.
func (svc *Service) serve(ctx context.Context, srv *dns.Server, network string) {
	err := srv.ActivateAndServe()
	if err != nil {
		errcoll.Collect(ctx, svc.errColl, svc.logger, "dnssvc: serving "+network, err)
	}
}

// Shutdown implements the [service.Interface] interface for *Service.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	defer svc.logger.InfoContext(ctx, "shut down")

	err = svc.udpSrv.ShutdownContext(ctx)
	if err != nil {
		err = fmt.Errorf("dnssvc: shutting down udp: %w", err)
	}

	if svc.tcpSrv != nil {
		tcpErr := svc.tcpSrv.ShutdownContext(ctx)
		if tcpErr != nil {
			tcpErr = fmt.Errorf("dnssvc: shutting down tcp: %w", tcpErr)
		}

		if err == nil {
			err = tcpErr
		} else if tcpErr != nil {
			svc.logger.WarnContext(ctx, "shutting down tcp", slogutil.KeyError, tcpErr)
		}
	}

	return err
}
