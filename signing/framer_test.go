package signing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "csr marker", input: "foo_csr_bar.req", expected: "foo_crt_bar"},
		{name: "no marker", input: "foo.req", expected: "foo"},
		{name: "only first marker", input: "a_csr_b_csr_c.pem", expected: "a_crt_b_csr_c"},
		{name: "no extension", input: "host_csr_1", expected: "host_crt_1"},
		{name: "only last extension", input: "host_csr_.tar.gz", expected: "host_crt_.tar"},
		{name: "dotfile", input: ".req", expected: ".req"},
		{name: "trailing dot", input: "foo.", expected: "foo"},
		{name: "marker needs underscores", input: "foo-csr-bar.req", expected: "foo-csr-bar"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, DeriveFilename(tt.input))
		})
	}
}

func TestFrameSuccess(t *testing.T) {
	cert := []byte("-----BEGIN CERTIFICATE-----\n\x00\xff\n-----END CERTIFICATE-----\n")
	resp := FrameSuccess("srv_csr_auth.req", cert)

	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, []Header{
		{Name: "Content-Type", Value: "application/octet-stream"},
		{Name: "Content-Disposition", Value: `attachment; filename="srv_crt_auth.pem"`},
		{Name: "Content-Length", Value: formatInt(len(cert))},
	}, resp.Headers)
	require.Equal(t, cert, resp.Body)
}

func TestFrameSuccess_EscapesHostileFilename(t *testing.T) {
	resp := FrameSuccess("a\"b\\c\r\nX-Evil: 1.req", []byte("x"))
	require.Equal(t, `attachment; filename="a\"b\\cX-Evil: 1.pem"`, resp.Get("content-disposition"))
}

func TestFrameFailure_EscapesStderr(t *testing.T) {
	resp := FrameFailure("bad request <script>alert(1)</script> & more")

	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Equal(t, "text/html; charset=utf-8", resp.Get("Content-Type"))
	require.Equal(t,
		"<html><body>Error:<pre>bad request &lt;script&gt;alert(1)&lt;/script&gt; &amp; more</pre></body></html>",
		string(resp.Body))
	require.Equal(t, formatInt(len(resp.Body)), resp.Get("Content-Length"))
}

func TestFrameBadRequest(t *testing.T) {
	resp := FrameBadRequest()
	require.Equal(t, http.StatusBadRequest, resp.Status)
	require.Empty(t, resp.Body)
}

func TestResponse_Write(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, FrameSuccess("x.req", []byte("CERT")).Write(w))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "4", w.Header().Get("Content-Length"))
	require.Equal(t, `attachment; filename="x.pem"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, "CERT", w.Body.String())
}
