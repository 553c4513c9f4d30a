package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practicelab/logger"
	"practicelab/reqlog"
)

func TestUpstream_Forwards(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Path", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, `{"from":"origin"}`)
	}))
	defer origin.Close()

	up, err := NewUpstream(origin.URL, logger.Discard())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	up.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/assets/app.js", rec.Header().Get("X-Path"))
	assert.JSONEq(t, `{"from":"origin"}`, rec.Body.String())
}

func TestUpstream_UnreachableIsBadGateway(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	addr := origin.URL
	origin.Close()

	up, err := NewUpstream(addr, logger.Discard())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	up.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRecorder_CapturesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	lw := NewRecorder(rec)

	_, err := lw.Write([]byte(`{"a":1}`))
	require.NoError(t, err)

	e := lw.Entry(reqlog.Entry{Method: "GET"})
	assert.Equal(t, http.StatusOK, e.Status)
	assert.JSONEq(t, `{"a":1}`, string(e.Response))
	assert.Equal(t, int64(7), lw.Bytes())
}
