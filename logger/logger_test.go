package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["message"])
	require.Equal(t, "v", line["k"])
	require.Contains(t, line, "time")

	buf.Reset()
	log = Setup(&buf, true)
	log.Debug().Msg("visible in debug")
	require.Contains(t, buf.String(), "visible in debug")
	require.Contains(t, buf.String(), "DBG")
}

func TestRequests_AccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	var seenID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		seenID = w.Header().Get(RequestIDHeader)
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = io.WriteString(w, "late")
	})

	w := httptest.NewRecorder()
	Requests(log)(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sign", nil))

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	require.Equal(t, id, seenID)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &access))

	require.Equal(t, id, inner["request_id"])
	require.Equal(t, "/sign", inner["path"])

	require.Equal(t, "http request", access["message"])
	require.Equal(t, "warn", access["level"])
	require.EqualValues(t, http.StatusGatewayTimeout, access["status"])
	require.EqualValues(t, 4, access["bytes"])
	require.Equal(t, "POST", access["method"])
}

func TestRequests_KeepsIncomingRequestID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	Requests(zerolog.Nop())(next).ServeHTTP(w, r)

	require.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestStatusRecorder_DefaultsTo200OnWrite(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	require.Equal(t, 0, rec.Status())

	_, err := rec.Write([]byte("x"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusTeapot)

	require.Equal(t, http.StatusOK, rec.Status())
	require.NotNil(t, rec.Unwrap())
}
