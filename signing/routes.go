package signing

import (
	_ "embed"
	"net/http"
)

//go:embed form.html
var formHTML []byte

type RouteOptions struct {
	// SignMiddleware envolve só o POST /sign (rate limit, concorrência).
	SignMiddleware func(http.Handler) http.Handler
	// Metrics, se não-nil, é servido em GET /metrics.
	Metrics http.Handler
}

// Routes monta o mux da gateway:
//
//	GET  /            formulário de upload
//	GET  /favicon.ico 410 Gone
//	POST /sign        intake do CSR
//	GET  /metrics     (opcional)
func Routes(sign http.Handler, opts RouteOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", serveForm)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	if opts.SignMiddleware != nil {
		sign = opts.SignMiddleware(sign)
	}
	mux.Handle("POST /sign", sign)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	return mux
}

func serveForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Content-Length", formatInt(len(formHTML)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(formHTML)
	}
}
