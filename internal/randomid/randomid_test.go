package randomid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, url string, format Format) *HTTPSource {
	t.Helper()
	src, err := NewHTTPSource(HTTPConfig{URL: url, Format: format, Timeout: time.Second}, nil, quietLogger())
	require.NoError(t, err)
	return src
}

func TestHTTPSourceCSRNG(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			fmt.Fprint(w, `[{"status":"success","min":1,"max":100000000000,"random":4242}]`)
		}))
		defer srv.Close()

		value, err := newSource(t, srv.URL+"/csrng/csrng.php", FormatCSRNG).Fetch(ctx, 1, 100000000000)
		require.NoError(t, err)
		assert.Equal(t, int64(4242), value)
		assert.Equal(t, "max=100000000000&min=1", gotQuery)
	})

	t.Run("ErrorStatus", func(t *testing.T) {
		srv := newServer(t, `[{"status":"error","code":"5","reason":"Request limit exceeded"}]`, http.StatusOK)
		_, err := newSource(t, srv.URL, FormatCSRNG).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
		assert.False(t, IsConnection(err))
	})

	t.Run("EmptyArray", func(t *testing.T) {
		srv := newServer(t, `[]`, http.StatusOK)
		_, err := newSource(t, srv.URL, FormatCSRNG).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
	})

	t.Run("NotJSON", func(t *testing.T) {
		srv := newServer(t, `<html>maintenance</html>`, http.StatusOK)
		_, err := newSource(t, srv.URL, FormatCSRNG).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := newServer(t, `oops`, http.StatusInternalServerError)
		_, err := newSource(t, srv.URL, FormatCSRNG).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))

		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Contains(t, upstream.Endpoint, "127.0.0.1")
	})

	t.Run("OutOfRange", func(t *testing.T) {
		srv := newServer(t, `[{"status":"success","random":99}]`, http.StatusOK)
		_, err := newSource(t, srv.URL, FormatCSRNG).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
	})
}

func TestHTTPSourcePlain(t *testing.T) {
	srv := newServer(t, "17\n", http.StatusOK)
	value, err := newSource(t, srv.URL, FormatPlain).Fetch(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(17), value)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newSource(t, url, FormatCSRNG).Fetch(context.Background(), 0, 10)
	assert.True(t, IsConnection(err))
	assert.False(t, IsFormat(err))
}

func TestNewHTTPSourceValidation(t *testing.T) {
	_, err := NewHTTPSource(HTTPConfig{URL: "not a url"}, nil, nil)
	assert.Error(t, err)

	_, err = NewHTTPSource(HTTPConfig{URL: "https://example.com", Format: "xml"}, nil, nil)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	formatFail := SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
		return 0, formatError("primary", "bad body")
	})
	connFail := SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
		return 0, connectionError("secondary", errors.New("dial tcp: refused"))
	})
	fixed := func(v int64) SourceFunc {
		return func(ctx context.Context, min, max int64) (int64, error) { return v, nil }
	}

	t.Run("PrimarySucceeds", func(t *testing.T) {
		value, err := NewFallback(fixed(1), fixed(2), quietLogger()).Fetch(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), value)
	})

	t.Run("FormatFailureUsesSecondary", func(t *testing.T) {
		value, err := NewFallback(formatFail, fixed(2), quietLogger()).Fetch(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), value)
	})

	t.Run("ConnectionFailureSkipsSecondary", func(t *testing.T) {
		var called atomic.Bool
		secondary := SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
			called.Store(true)
			return 2, nil
		})
		primary := SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
			return 0, connectionError("primary", errors.New("timeout"))
		})

		_, err := NewFallback(primary, secondary, quietLogger()).Fetch(ctx, 0, 10)
		assert.True(t, IsConnection(err))
		assert.False(t, called.Load())
	})

	t.Run("SecondaryUnreachable", func(t *testing.T) {
		_, err := NewFallback(formatFail, connFail, quietLogger()).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
		assert.False(t, IsConnection(err))
		assert.Contains(t, err.Error(), "dial tcp: refused")

		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, "secondary", upstream.Endpoint)
	})

	t.Run("SecondaryPlainError", func(t *testing.T) {
		plain := SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
			return 0, errors.New("boom")
		})
		_, err := NewFallback(formatFail, plain, quietLogger()).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
		assert.False(t, IsConnection(err))
	})

	t.Run("BothBadContent", func(t *testing.T) {
		_, err := NewFallback(formatFail, formatFail, quietLogger()).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
	})

	t.Run("NoSecondary", func(t *testing.T) {
		_, err := NewFallback(formatFail, nil, quietLogger()).Fetch(ctx, 0, 10)
		assert.True(t, IsFormat(err))
	})
}

func TestLocalSource(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		value, err := LocalSource{}.Fetch(ctx, 5, 7)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, value, int64(5))
		assert.LessOrEqual(t, value, int64(7))
	}

	_, err := LocalSource{}.Fetch(ctx, 7, 5)
	assert.Error(t, err)
}
