package rest

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (r *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.hijacked = true
	return nil, nil, nil
}

func TestStatusResponseWriter_HijackDelegates(t *testing.T) {
	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	wrapped := &statusResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	// Connection upgrades type-assert the writer they are handed.
	hijacker, ok := any(wrapped).(http.Hijacker)
	require.True(t, ok)

	_, _, err := hijacker.Hijack()
	require.NoError(t, err)
	assert.True(t, rec.hijacked)
}

func TestStatusResponseWriter_HijackUnsupported(t *testing.T) {
	wrapped := &statusResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	_, _, err := wrapped.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}

func TestStatusResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &statusResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	assert.Same(t, rec, wrapped.Unwrap())
}

func TestRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("rejects requests beyond the burst", func(t *testing.T) {
		handler := rateLimitMiddleware(1, 2)(okHandler)

		codes := make([]int, 0, 3)
		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, rec.Code)
		}

		assert.Equal(t, http.StatusNoContent, codes[0])
		assert.Equal(t, http.StatusNoContent, codes[1])
		assert.Equal(t, http.StatusTooManyRequests, codes[2])
	})

	t.Run("zero rate disables throttling", func(t *testing.T) {
		handler := rateLimitMiddleware(0, 0)(okHandler)

		for range 50 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusNoContent, rec.Code)
		}
	})

	t.Run("zero burst falls back to the rate", func(t *testing.T) {
		handler := rateLimitMiddleware(10, 0)(okHandler)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
