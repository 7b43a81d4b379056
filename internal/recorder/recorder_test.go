package recorder_test

import (
	"context"
	"io"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/dssldrf"
	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
	"github.com/dssldrf/dusseldorf/internal/dssltest"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/dssldrf/dusseldorf/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Record(t *testing.T) {
	t.Parallel()

	var got *dssldrf.Interaction
	store := dssltest.NewStore()
	store.OnRecordInteraction = func(_ context.Context, inter *dssldrf.Interaction) (err error) {
		got = inter

		return nil
	}

	r := recorder.New(&recorder.Config{
		Logger:  slogutil.NewDiscardLogger(),
		ErrColl: errcoll.NewWriterErrorCollector(io.Discard),
		Storage: store,
	})

	req := &dsslmsg.DNSRequest{
		FQDN:   "foo." + dssltest.Zone,
		Domain: dssltest.Domain,
		Zone:   dssltest.Zone,
		Client: "192.0.2.7",
		QType:  "A",
	}
	resp := &dsslmsg.DNSResponse{
		RData: map[string]any{"ip": "1.1.1.1"},
		RName: req.FQDN,
		RType: "A",
		TTL:   60,
	}

	r.Record(context.Background(), req, resp)

	require.NotNil(t, got)
	assert.Equal(t, dssltest.Zone, got.Zone)
	assert.Equal(t, "foo."+dssltest.Zone, got.FQDN)
	assert.Equal(t, dssldrf.ProtocolDNS, got.Protocol)
	assert.Equal(t, "192.0.2.7", got.ClientIP)
	assert.Equal(t, "A/foo."+dssltest.Zone, got.ReqSummary)
	assert.Equal(t, "1.1.1.1", got.RespSummary)
	assert.JSONEq(t, `{"fqdn":"foo.z.d.test","type":"A"}`, got.Request)
}

func TestDefault_Record_nilResponse(t *testing.T) {
	t.Parallel()

	var got *dssldrf.Interaction
	store := dssltest.NewStore()
	store.OnRecordInteraction = func(_ context.Context, inter *dssldrf.Interaction) (err error) {
		got = inter

		return nil
	}

	r := recorder.New(&recorder.Config{
		Logger:  slogutil.NewDiscardLogger(),
		ErrColl: errcoll.NewWriterErrorCollector(io.Discard),
		Storage: store,
	})

	r.Record(context.Background(), &dsslmsg.DNSRequest{
		FQDN:   "foo." + dssltest.Zone,
		Zone:   dssltest.Zone,
		QType:  "HINFO",
		Client: "192.0.2.7",
	}, nil)

	require.NotNil(t, got)
	assert.Empty(t, got.Response)
	assert.Empty(t, got.RespSummary)
}

func TestDefault_Record_failure(t *testing.T) {
	t.Parallel()

	store := dssltest.NewStore()
	store.OnRecordInteraction = func(_ context.Context, _ *dssldrf.Interaction) (err error) {
		return errors.Error("store is down")
	}

	r := recorder.New(&recorder.Config{
		Logger:  slogutil.NewDiscardLogger(),
		ErrColl: errcoll.NewWriterErrorCollector(io.Discard),
		Storage: store,
	})

	// Must not panic or propagate the error.
	r.Record(context.Background(), &dsslmsg.HTTPRequest{
		FQDN:   dssltest.Zone,
		Zone:   dssltest.Zone,
		Method: "GET",
		Path:   "/",
	}, dsslmsg.NewEmptyHTTPResponse())
}
