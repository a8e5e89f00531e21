package admission

import (
	"net/http"
	"time"

	"csr-gateway/middleware/admission/application"
	"csr-gateway/middleware/admission/domain"

	"github.com/rs/zerolog"
)

// RejectFunc é chamado a cada requisição recusada, antes da resposta ser escrita.
type RejectFunc func(r *http.Request, key string, reason domain.Reason)

type Options struct {
	Store               domain.LimiterStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	OnReject            RejectFunc
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// Middleware aplica o rate limit por cliente. Store nil deixa tudo passar.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	svc := application.RateService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			if !dec.Allowed {
				zerolog.Ctx(r.Context()).Warn().Str("client", key).Msg("rate limited")
				if opts.OnReject != nil {
					opts.OnReject(r, key, domain.ReasonRateLimited)
				}
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
