package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader é ecoado na resposta e aparece em todas as linhas de log da requisição.
const RequestIDHeader = "X-Request-Id"

// Setup monta o logger do processo. Em debug a saída é legível (console) e
// inclui stack dos erros; fora dele é JSON, uma linha por evento.
func Setup(w io.Writer, debug bool) zerolog.Logger {
	if !debug {
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Caller().Stack().Logger()
}

// Requests coloca um logger com request_id no contexto e registra uma linha de
// acesso por requisição.
func Requests(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logger.With().
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Logger().WithContext(r.Context())

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			ev := zerolog.Ctx(ctx).Info()
			if rec.Status() >= http.StatusInternalServerError {
				ev = zerolog.Ctx(ctx).Warn()
			}
			ev.Int("status", rec.Status()).
				Int64("bytes", rec.bytes).
				Dur("duration", time.Since(started)).
				Msg("http request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// Status devolve 0 quando nada foi escrito (cliente foi embora, por exemplo).
func (s *statusRecorder) Status() int { return s.status }

// Unwrap deixa o http.ResponseController achar o writer original.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
