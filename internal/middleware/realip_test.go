package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolveThroughMiddleware runs one request through RealIP and captures the
// value stored in the context.
func resolveThroughMiddleware(t *testing.T, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var got string
	handler := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RealIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

// =============================================================================
// Header Priority Tests
// =============================================================================

func TestRealIP_CFConnectingIPWinsOverAll(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"CF-Connecting-IP": "203.0.113.1",
		"X-Real-IP":        "203.0.113.2",
		"X-Forwarded-For":  "203.0.113.3",
	})
	assert.Equal(t, "203.0.113.1", got)
}

func TestRealIP_XRealIP(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"X-Real-IP":       "203.0.113.2",
		"X-Forwarded-For": "203.0.113.3",
	})
	assert.Equal(t, "203.0.113.2", got)
}

func TestRealIP_XForwardedForFirstElement(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"X-Forwarded-For": "203.0.113.3, 198.51.100.1, 192.0.2.1",
	})
	assert.Equal(t, "203.0.113.3", got)
}

func TestRealIP_XForwardedForWhitespaceTrimmed(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"X-Forwarded-For": "  203.0.113.3  , 198.51.100.1",
	})
	assert.Equal(t, "203.0.113.3", got)
}

func TestRealIP_IPv6(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"X-Forwarded-For": "2001:db8::1",
	})
	assert.Equal(t, "2001:db8::1", got)
}

// =============================================================================
// Fallback Tests
// =============================================================================

func TestRealIP_NoHeadersFallsBackToSocketPeer(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", nil)
	assert.Equal(t, "192.168.1.1", got)
}

func TestRealIP_InvalidHeaderValuesSkipped(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"CF-Connecting-IP": "not-an-ip",
		"X-Real-IP":        "also not",
		"X-Forwarded-For":  "garbage, 203.0.113.3",
	})
	assert.Equal(t, "192.168.1.1", got, "invalid values fall through to the socket peer")
}

func TestRealIP_InvalidCFFallsThroughToNextHeader(t *testing.T) {
	got := resolveThroughMiddleware(t, "192.168.1.1:1234", map[string]string{
		"CF-Connecting-IP": "not-an-ip",
		"X-Real-IP":        "203.0.113.2",
	})
	assert.Equal(t, "203.0.113.2", got)
}

func TestRealIPFromContext_MissingMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, RealIPFromContext(req.Context()))
}
