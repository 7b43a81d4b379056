// Package recorder persists finished interactions.  Recording is best-effort:
// a failure is logged and counted but never surfaces to the client.
package recorder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/metrics"
	"github.com/dssldrf/dusseldorf/internal/storage"
)

// Interface is the interaction recorder.
type Interface interface {
	// Record persists the (req, resp) pair.  resp may be nil when no
	// response could be synthesized.
	Record(ctx context.Context, req dsslmsg.Request, resp dsslmsg.Response)
}

// Empty is an [Interface] implementation that does nothing.
type Empty struct{}

// type check
var _ Interface = Empty{}

// Record implements the [Interface] interface for Empty.
func (Empty) Record(_ context.Context, _ dsslmsg.Request, _ dsslmsg.Response) {}

// Config is the configuration of the default recorder.
type Config struct {
	// Logger is used for logging recording failures.  It must not be nil.
	Logger *slog.Logger

	// ErrColl collects recording failures.  It must not be nil.
	ErrColl errcoll.Interface

	// Storage is the store interactions are appended to.  It must not be
	// nil.
	Storage storage.Interface
}

// Default is the [Interface] implementation that writes interactions through
// the store.
type Default struct {
	logger  *slog.Logger
	errColl errcoll.Interface
	storage storage.Interface
}

// New returns a new recorder.  c must not be nil.
func New(c *Config) (r *Default) {
	return &Default{
		logger:  c.Logger,
		errColl: c.ErrColl,
		storage: c.Storage,
	}
}

// type check
var _ Interface = (*Default)(nil)

// Record implements the [Interface] interface for *Default.
func (r *Default) Record(ctx context.Context, req dsslmsg.Request, resp dsslmsg.Response) {
	inter, err := newInteraction(req, resp)
	if err == nil {
		err = r.storage.RecordInteraction(ctx, inter)
	}

	if err != nil {
		metrics.RecorderErrorsTotal.Inc()
		errcoll.Collect(ctx, r.errColl, r.logger, "recording interaction", err)

		return
	}

	metrics.RecorderSavedTotal.WithLabelValues(string(req.Protocol())).Inc()
}

// newInteraction builds the interaction record for the pair.
func newInteraction(req dsslmsg.Request, resp dsslmsg.Response) (inter *dssldrf.Interaction, err error) {
	reqJSON, err := req.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("serializing request: %w", err)
	}

	inter = &dssldrf.Interaction{
		Zone:       req.ZoneFQDN(),
		FQDN:       req.RequestFQDN(),
		Protocol:   req.Protocol(),
		ClientIP:   req.RemoteAddr(),
		Request:    string(reqJSON),
		ReqSummary: req.Summary(),
	}

	if resp != nil {
		respJSON, respErr := resp.MarshalJSON()
		if respErr != nil {
			return nil, fmt.Errorf("serializing response: %w", respErr)
		}

		inter.Response = string(respJSON)
		inter.RespSummary = resp.Summary()
	}

	return inter, nil
}
