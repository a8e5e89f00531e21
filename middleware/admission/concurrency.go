package admission

import (
	"net/http"
	"time"

	"csr-gateway/middleware/admission/application"
	"csr-gateway/middleware/admission/domain"
	"csr-gateway/middleware/admission/infra"

	"github.com/rs/zerolog"
)

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	KeyFn          KeyFunc
	OnReject       RejectFunc
}

// ConcurrencyMiddleware limita quantas requisições rodam o próximo handler ao mesmo tempo.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				key := opts.KeyFn(r)
				zerolog.Ctx(r.Context()).Warn().Str("client", key).Int("max", opts.Max).Msg("no signing slot available")
				if opts.OnReject != nil {
					opts.OnReject(r, key, domain.ReasonBusy)
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
