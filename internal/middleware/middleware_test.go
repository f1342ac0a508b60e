package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shrine-timeline/timeline-web/internal/observability"
)

func TestLoggerRecordsStatusAndInjectsLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var fromCtx *zap.Logger
	h := chiMid.RequestID(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = observability.FromContext(r.Context())
		if _, ok := RequestID(r.Context()); !ok {
			t.Errorf("missing request id on context")
		}
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/missing.jpg", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, fromCtx)
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.Equal(t, "/images/missing.jpg", fields["path"])
}

func TestAssetsWithCacheServesETag(t *testing.T) {
	fsys := fstest.MapFS{
		"images/books/sapiens.jpg": {Data: []byte("jpeg")},
	}
	h := AssetsWithCache(fsys)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/books/sapiens.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	et := rec.Header().Get("ETag")
	require.NotEmpty(t, et)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	req := httptest.NewRequest(http.MethodGet, "/images/books/sapiens.jpg", nil)
	req.Header.Set("If-None-Match", et)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/people/plato.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponseRecorderCountsBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseRecorder(rec)
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("timeline"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, http.StatusCreated, rw.Status())
	assert.Equal(t, 8, rw.Bytes())
	assert.Equal(t, http.StatusCreated, rec.Code)
}
