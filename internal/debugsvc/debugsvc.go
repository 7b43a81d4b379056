// Package debugsvc contains the debug HTTP API of the Dusseldorf data plane.
// It serves the health check, prometheus metrics, and pprof endpoints on a
// separate listener that is never exposed to the OAST traffic.
package debugsvc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/netutil/httputil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config is the debug HTTP service configuration structure.
type Config struct {
	// Logger is used for logging the operation of the service.  It must not
	// be nil.
	Logger *slog.Logger

	// ErrColl collects serving errors.  It must not be nil.
	ErrColl errcoll.Interface

	// Addr is the address the service binds, for example "127.0.0.1:8181".
	// It must not be empty.
	Addr string
}

// Service is the debug HTTP service.
type Service struct {
	logger  *slog.Logger
	errColl errcoll.Interface
	addr    string

	srv *http.Server
}

// New returns a new debug HTTP service.  c must not be nil.
func New(c *Config) (svc *Service) {
	svc = &Service{
		logger:  c.Logger,
		errColl: c.ErrColl,
		addr:    c.Addr,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health-check", svc.middleware(
		http.HandlerFunc(serveHealthCheck),
		slog.LevelDebug,
	))
	mux.Handle("GET /metrics", svc.middleware(promhttp.Handler(), slog.LevelDebug))
	httputil.RoutePprof(mux)

	// Do not set the timeouts, since debug/pprof and similar debug APIs may
	// be busy for a long time.
	svc.srv = &http.Server{
		Handler:  mux,
		ErrorLog: slog.NewLogLogger(c.Logger.Handler(), slog.LevelDebug),
	}

	return svc
}

// type check
var _ service.Interface = (*Service)(nil)

// Start implements the [service.Interface] interface for *Service.  A bind
// failure is returned immediately; serving happens in the background.
func (svc *Service) Start(ctx context.Context) (err error) {
	lsnr, err := net.Listen("tcp", svc.addr)
	if err != nil {
		return fmt.Errorf("debugsvc: binding %s: %w", svc.addr, err)
	}

	go func() {
		serveErr := svc.srv.Serve(lsnr)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errcoll.Collect(ctx, svc.errColl, svc.logger, "debugsvc: serving", serveErr)
		}
	}()

	svc.logger.InfoContext(ctx, "listening", "addr", svc.addr)

	return nil
}

// Shutdown implements the [service.Interface] interface for *Service.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	defer svc.logger.InfoContext(ctx, "shut down")

	return svc.srv.Shutdown(ctx)
}
