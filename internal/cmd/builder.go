package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/dssldrf/dusseldorf/internal/debugsvc"
	"github.com/dssldrf/dusseldorf/internal/dnssvc"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/passthru"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/dssldrf/dusseldorf/internal/rules"
	"github.com/dssldrf/dusseldorf/internal/storage"
	"github.com/dssldrf/dusseldorf/internal/websvc"
)

// builderConfig contains the initialized common entities the builder
// requires.
type builderConfig struct {
	// envs contains the environment of the program.  It must be valid.
	envs *environment

	// conf is the on-disk configuration.  It must be valid.
	conf *configuration

	// baseLogger is the base logger of the program.  It must not be nil.
	baseLogger *slog.Logger

	// errColl collects errors of the program.  It must not be nil.
	errColl errcoll.Interface
}

// builder contains the logic of configuring the services of the data plane.
// Its methods must be called in the order they are defined in, since later
// entities depend on the earlier ones.
type builder struct {
	envs       *environment
	conf       *configuration
	baseLogger *slog.Logger
	errColl    errcoll.Interface
	sigHdlr    *signalHandler

	storage     storage.Interface
	constructor *dsslmsg.Constructor
	engine      *rules.Engine
	recorder    recorder.Interface

	dnsSvc   *dnssvc.Service
	webSvc   *websvc.Service
	debugSvc *debugsvc.Service
}

// newBuilder returns a new builder.  c must not be nil and must be valid.
func newBuilder(c *builderConfig) (b *builder) {
	return &builder{
		envs:       c.envs,
		conf:       c.conf,
		baseLogger: c.baseLogger,
		errColl:    c.errColl,
		sigHdlr: newSignalHandler(
			c.baseLogger.With(slogutil.KeyPrefix, "sighdlr"),
		),
	}
}

// initStorage connects to the store and wraps it with the cache.  The initial
// connection failure is fatal.
func (b *builder) initStorage(ctx context.Context) (err error) {
	mongoDB, err := storage.NewMongo(ctx, &storage.MongoConfig{
		Logger:   b.baseLogger.With(slogutil.KeyPrefix, "storage"),
		URI:      b.envs.ConnStr,
		Database: b.envs.Database,
	})
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}

	b.storage = storage.NewCache(&storage.CacheConfig{
		Logger: b.baseLogger.With(slogutil.KeyPrefix, "storage_cache"),
		Store:  mongoDB,
	})

	b.baseLogger.InfoContext(ctx, "store is ready", "database", b.envs.Database)

	return nil
}

// initEngine builds the default-response constructor, the passthrough
// client, and the rule engine.
func (b *builder) initEngine(_ context.Context) (err error) {
	r := b.conf.Responder
	b.constructor = dsslmsg.NewConstructor(&dsslmsg.ConstructorConfig{
		Logger:       b.baseLogger.With(slogutil.KeyPrefix, "constructor"),
		Storage:      b.storage,
		IPv6Pool:     []netip.Addr(b.envs.IPv6Pool),
		CAAValue:     r.CAAValue,
		ContactEmail: r.ContactEmail,
		SOASerial:    r.SOASerial,
		DefaultTTL:   r.DefaultTTL,
	})

	guard := passthru.NewGuard(&passthru.GuardConfig{
		Logger:   b.baseLogger.With(slogutil.KeyPrefix, "passthru_guard"),
		Resolver: net.DefaultResolver,
	})

	client := passthru.NewClient(&passthru.ClientConfig{
		Logger: b.baseLogger.With(slogutil.KeyPrefix, "passthru"),
		Guard:  guard,
	})

	b.engine = rules.NewEngine(&rules.Config{
		Logger:      b.baseLogger.With(slogutil.KeyPrefix, "rules"),
		Storage:     b.storage,
		Constructor: b.constructor,
		Passthru:    client,
	})

	return nil
}

// initRecorder builds the interaction recorder.
func (b *builder) initRecorder(_ context.Context) (err error) {
	b.recorder = recorder.New(&recorder.Config{
		Logger:  b.baseLogger.With(slogutil.KeyPrefix, "recorder"),
		ErrColl: b.errColl,
		Storage: b.storage,
	})

	return nil
}

// startDNS builds and starts the DNS listener.  A bind failure is fatal.
func (b *builder) startDNS(ctx context.Context) (err error) {
	b.dnsSvc = dnssvc.New(&dnssvc.Config{
		Logger:      b.baseLogger.With(slogutil.KeyPrefix, "dnssvc"),
		ErrColl:     b.errColl,
		Storage:     b.storage,
		Constructor: b.constructor,
		Engine:      b.engine,
		Recorder:    b.recorder,
		Addr:        netutil.JoinHostPort(b.envs.DNSInterface.String(), b.envs.DNSPort),
		EnableTCP:   !bool(b.envs.DNSUDPOnly),
	})

	err = b.dnsSvc.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting dns listener: %w", err)
	}

	b.sigHdlr.add(b.dnsSvc)

	return nil
}

// startWeb builds and starts the HTTP listener.  Missing TLS material when
// TLS is on, as well as a bind failure, is fatal.
func (b *builder) startWeb(ctx context.Context) (err error) {
	var tlsConf *tls.Config
	if b.envs.HTTPTLS {
		tlsConf, err = websvc.NewTLSConfig(b.envs.TLSCertFile, b.envs.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("loading tls material: %w", err)
		}
	}

	b.webSvc = websvc.New(&websvc.Config{
		Logger:   b.baseLogger.With(slogutil.KeyPrefix, "websvc"),
		ErrColl:  b.errColl,
		Storage:  b.storage,
		Engine:   b.engine,
		Recorder: b.recorder,
		TLSConf:  tlsConf,
		Addr:     netutil.JoinHostPort(b.envs.HTTPInterface.String(), b.envs.HTTPPort),
	})

	err = b.webSvc.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting http listener: %w", err)
	}

	b.sigHdlr.add(b.webSvc)

	return nil
}

// startDebugSvc builds and starts the debug HTTP service.
func (b *builder) startDebugSvc(ctx context.Context) (err error) {
	b.debugSvc = debugsvc.New(&debugsvc.Config{
		Logger:  b.baseLogger.With(slogutil.KeyPrefix, "debugsvc"),
		ErrColl: b.errColl,
		Addr:    netutil.JoinHostPort(b.envs.ListenAddr.String(), b.envs.ListenPort),
	})

	err = b.debugSvc.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting debug service: %w", err)
	}

	b.sigHdlr.add(b.debugSvc)

	return nil
}

// handleSignals blocks and processes signals, returning the exit status.
func (b *builder) handleSignals(ctx context.Context) (status int) {
	return b.sigHdlr.handle(ctx)
}
