// Package cmd is the Dusseldorf data-plane entry point.  It contains the
// environment and on-disk configuration utilities, the builder wiring the
// services together, and the signal processing logic.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/version"
	"golang.org/x/sys/unix"
)

// Main is the entry point of the application.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)

	envs := errors.Must(parseEnvironment())
	errors.Check(envs.Validate())

	baseLogger := envs.logger()
	mainLogger := baseLogger.With(slogutil.KeyPrefix, "main")

	mainLogger.InfoContext(
		ctx,
		"dusseldorf starting",
		"version", version.Version(),
		"revision", version.Revision(),
		"branch", version.Branch(),
		"commit_time", version.CommitTime(),
	)

	errColl := errors.Must(envs.buildErrColl())

	conf := errors.Must(parseConfig(envs.ConfPath))
	errors.Check(conf.Validate())

	b := newBuilder(&builderConfig{
		envs:       envs,
		conf:       conf,
		baseLogger: baseLogger,
		errColl:    errColl,
	})

	errors.Check(b.initStorage(ctx))

	errors.Check(b.initEngine(ctx))

	errors.Check(b.initRecorder(ctx))

	errors.Check(b.startDNS(ctx))

	errors.Check(b.startWeb(ctx))

	errors.Check(b.startDebugSvc(ctx))

	// Signal that the server is started.
	metrics.SetUpGauge(
		version.Version(),
		version.CommitTime(),
		version.Branch(),
		version.Revision(),
		runtime.Version(),
	)

	// Unregister the signal behavior for ctx, the signal handler takes over
	// from here.
	stop()
	ctx = context.WithoutCancel(ctx)

	os.Exit(b.handleSignals(ctx))
}
