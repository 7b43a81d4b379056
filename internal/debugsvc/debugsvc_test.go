package debugsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dssldrf/dusseldorf/internal/errcoll"
	"github.com/stretchr/testify/assert"
)

func TestService(t *testing.T) {
	t.Parallel()

	l := slogutil.NewDiscardLogger()
	svc := New(&Config{
		Logger:  l,
		ErrColl: errcoll.NewWriterErrorCollector(io.Discard),
		Addr:    "127.0.0.1:0",
	})

	t.Run("health_check", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/health-check", nil)
		svc.srv.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK\n", w.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		svc.srv.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
	})
}
