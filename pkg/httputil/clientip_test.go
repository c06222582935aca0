package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	p, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "2001:db8::1"})
	require.NoError(t, err)
	assert.True(t, p.Trusts("10.1.2.3"))
	assert.True(t, p.Trusts("192.0.2.1"))
	assert.False(t, p.Trusts("192.0.2.2"))
	assert.True(t, p.Trusts("2001:db8::1"))
	assert.False(t, p.Trusts("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)

	var none *TrustedProxies
	assert.False(t, none.Trusts("10.1.2.3"))
}

func TestTrustedProxiesResolve(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		proxies    *TrustedProxies
		remoteAddr string
		xff        []string
		want       string
	}{
		{
			name:       "no proxies configured ignores the header",
			proxies:    nil,
			remoteAddr: "198.51.100.7:4567",
			xff:        []string{"203.0.113.9"},
			want:       "198.51.100.7",
		},
		{
			name:       "untrusted peer ignores the header",
			proxies:    proxies,
			remoteAddr: "198.51.100.7:4567",
			xff:        []string{"203.0.113.9"},
			want:       "198.51.100.7",
		},
		{
			name:       "trusted peer uses the hop it appended",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			xff:        []string{"203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "client supplied entries left of the real hop are ignored",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			xff:        []string{"1.2.3.4, 203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted hops are skipped across headers",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			xff:        []string{"1.2.3.4, 203.0.113.9", "10.0.0.3"},
			want:       "203.0.113.9",
		},
		{
			name:       "all hops trusted resolves to the leftmost",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			xff:        []string{"10.0.0.4, 10.0.0.3"},
			want:       "10.0.0.4",
		},
		{
			name:       "garbage hop stops the walk",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			xff:        []string{"203.0.113.9, bogus"},
			want:       "10.0.0.2",
		},
		{
			name:       "trusted peer without header",
			proxies:    proxies,
			remoteAddr: "10.0.0.2:4567",
			want:       "10.0.0.2",
		},
		{
			name:       "remote addr without port",
			proxies:    nil,
			remoteAddr: "pipe",
			want:       "pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, tt.proxies.Resolve(req))
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", nil)
	req.RemoteAddr = "198.51.100.7:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	// without the middleware only the peer address counts
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	proxies, err := ParseTrustedProxies([]string{"198.51.100.0/24"})
	require.NoError(t, err)

	var seen string
	handler := ClientIPMiddleware(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", seen)
}
