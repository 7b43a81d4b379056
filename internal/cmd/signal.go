package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"golang.org/x/sys/unix"
)

// Exit status constants.
const (
	statusSuccess = 0
	statusError   = 1
)

// shutdownTimeout is the time given to the services to shut down gracefully.
const shutdownTimeout = 10 * time.Second

// signalHandler processes incoming signals and shuts services down.
type signalHandler struct {
	logger *slog.Logger
	signal chan os.Signal

	// services are shut down in reverse order of registration before the
	// application exits.
	services []service.Interface
}

// newSignalHandler returns a new signalHandler.
func newSignalHandler(logger *slog.Logger) (h *signalHandler) {
	h = &signalHandler{
		logger: logger,
		signal: make(chan os.Signal, 1),
	}

	signal.Notify(h.signal, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM)

	return h
}

// add adds a service to the signal handler.
func (h *signalHandler) add(s service.Interface) {
	h.services = append(h.services, s)
}

// handle processes OS signals.  status is [statusSuccess] on success and
// [statusError] on error.
func (h *signalHandler) handle(ctx context.Context) (status int) {
	for sig := range h.signal {
		h.logger.InfoContext(ctx, "received signal", "signal", sig.String())

		switch sig {
		case
			unix.SIGINT,
			unix.SIGQUIT,
			unix.SIGTERM:
			return h.shutdown(ctx)
		}
	}

	// Shouldn't happen, since h.signal is currently never closed.
	return statusError
}

// shutdown gracefully shuts down all services.  status is [statusSuccess] on
// success and [statusError] on error.
func (h *signalHandler) shutdown(parent context.Context) (status int) {
	ctx, cancel := context.WithTimeout(parent, shutdownTimeout)
	defer cancel()

	h.logger.InfoContext(ctx, "shutting down services")
	for i := len(h.services) - 1; i >= 0; i-- {
		err := h.services[i].Shutdown(ctx)
		if err != nil {
			h.logger.ErrorContext(
				ctx,
				"shutting down service",
				"index", i,
				slogutil.KeyError, err,
			)
			status = statusError
		}
	}

	h.logger.InfoContext(ctx, "shutting down dusseldorf")

	return status
}
