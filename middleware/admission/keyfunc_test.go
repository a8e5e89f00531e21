package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name      string
		keyHeader string
		trustXFF  bool
		headers   map[string]string
		remote    string
		expected  string
	}{
		{
			name:      "header wins",
			keyHeader: "X-Client",
			headers:   map[string]string{"X-Client": " client-123 "},
			remote:    "10.0.0.1:1234",
			expected:  "client-123",
		},
		{
			name:      "empty header falls back",
			keyHeader: "X-Client",
			remote:    "10.0.0.1:1234",
			expected:  "10.0.0.1",
		},
		{
			name:     "first XFF ip when trusted",
			trustXFF: true,
			headers:  map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			remote:   "10.0.0.9:5555",
			expected: "1.2.3.4",
		},
		{
			name:     "XFF ignored when untrusted",
			headers:  map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remote:   "10.0.0.9:5555",
			expected: "10.0.0.9",
		},
		{
			name:     "remote without port",
			remote:   "unix-socket",
			expected: "unix-socket",
		},
		{
			name:     "ipv6 remote",
			remote:   "[::1]:9998",
			expected: "::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "http://ca.local/sign", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tt.expected, DefaultKeyFunc(tt.keyHeader, tt.trustXFF)(r))
		})
	}
}

func TestDefaultKeyFunc_Unknown(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://ca.local/sign", nil)
	r.RemoteAddr = ""
	require.Equal(t, "unknown", DefaultKeyFunc("", false)(r))
}
