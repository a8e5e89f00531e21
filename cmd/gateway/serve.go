package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csr-gateway/logger"
	"csr-gateway/middleware/admission"
	admissiondomain "csr-gateway/middleware/admission/domain"
	admissioninfra "csr-gateway/middleware/admission/infra"
	"csr-gateway/signing"
	"csr-gateway/signing/application"
	"csr-gateway/signing/domain"
	"csr-gateway/signing/infra"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	ListenAddr string `help:"HTTP listen address" default:":9998" env:"LISTEN_ADDR"`

	// Signer
	SignerPath        string        `help:"signing executable (sign_req.sh)" env:"SIGNER_PATH"`
	SignerInterpreter string        `help:"interpreter for the signer, e.g. bash (empty runs it directly)" env:"SIGNER_INTERPRETER"`
	SignerTimeout     time.Duration `help:"kill the signer after this long (0 waits forever)" default:"60s" env:"SIGNER_TIMEOUT"`
	SignerWaitDelay   time.Duration `help:"grace period for signer pipes after it is killed" default:"2s" env:"SIGNER_WAIT_DELAY"`

	// Intake
	ArtifactDir    string `help:"directory for temporary CSR files (empty uses the OS temp dir)" env:"ARTIFACT_DIR"`
	MaxUploadBytes int64  `help:"maximum request body size in bytes" default:"10000" env:"MAX_UPLOAD_BYTES"`

	Rate        RateFlags        `embed:"" prefix:"rate-"`
	Concurrency ConcurrencyFlags `embed:"" prefix:"concurrency-"`
	Stats       StatsFlags       `embed:"" prefix:"rate-stats-"`

	MetricsEnabled bool          `help:"serve Prometheus metrics on GET /metrics" default:"false" env:"METRICS_ENABLED"`
	ReadTimeout    time.Duration `help:"HTTP read timeout" default:"30s" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `help:"HTTP write timeout (must exceed the signer timeout)" default:"90s" env:"WRITE_TIMEOUT"`
}

type RateFlags struct {
	Enabled    bool          `help:"enable per-client rate limit on POST /sign" default:"true" env:"RATE_ENABLED"`
	RPS        float64       `help:"requests per second per client" default:"1" env:"RATE_RPS"`
	Burst      int           `help:"bucket size (0 = 20, or 1 when rps < 1)" default:"0" env:"RATE_BURST"`
	KeyHeader  string        `help:"header identifying the client (empty uses the IP)" env:"RATE_KEY_HEADER"`
	TrustXFF   bool          `help:"use the first X-Forwarded-For address as client" name:"trust-xff" default:"false" env:"TRUST_XFF"`
	RetryAfter time.Duration `help:"Retry-After sent with 429" default:"1s" env:"RETRY_AFTER"`
	AddHeaders bool          `help:"add X-RateLimit-* headers" name:"add-headers" default:"false" env:"ADD_RATELIMIT_HEADERS"`
}

type ConcurrencyFlags struct {
	Max     int           `help:"maximum concurrent signings (0 = unlimited)" default:"8" env:"CONCURRENCY_MAX"`
	Timeout time.Duration `help:"how long to wait for a free slot (0 waits until the client gives up)" default:"0s" env:"CONCURRENCY_TIMEOUT"`
}

type StatsFlags struct {
	Enabled       bool          `help:"persist signing stats in Redis" default:"false" env:"RATE_STATS_ENABLED"`
	RedisAddr     string        `help:"Redis address" env:"RATE_STATS_REDIS_ADDR"`
	RedisPassword string        `help:"Redis password" env:"RATE_STATS_REDIS_PASSWORD"`
	RedisDB       int           `help:"Redis database" default:"0" env:"RATE_STATS_REDIS_DB"`
	Prefix        string        `help:"key prefix" default:"csrgw:stats" env:"RATE_STATS_PREFIX"`
	TTL           time.Duration `help:"TTL of time-bucketed and per-client keys" default:"24h" env:"RATE_STATS_TTL"`
	Bucket        string        `help:"time bucket" default:"minute" enum:"minute,none" env:"RATE_STATS_BUCKET"`
	TrackKeys     bool          `help:"keep per-client counters" default:"false" env:"RATE_STATS_TRACK_KEYS"`
	PingTimeout   time.Duration `help:"how long to retry the Redis ping at start-up" default:"10s" env:"RATE_STATS_PING_TIMEOUT"`
	WriteTimeout  time.Duration `help:"deadline for each stats write (0 disables)" default:"250ms" env:"RATE_STATS_WRITE_TIMEOUT"`
}

// Validate é chamado pelo kong depois do parse.
func (c *ServeCmd) Validate() error {
	var errs *multierror.Error

	if strings.TrimSpace(c.SignerPath) == "" {
		errs = multierror.Append(errs, errors.New("SIGNER_PATH is required"))
	}
	if c.SignerTimeout < 0 {
		errs = multierror.Append(errs, errors.New("SIGNER_TIMEOUT must be >= 0"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = multierror.Append(errs, errors.New("MAX_UPLOAD_BYTES must be > 0"))
	}
	if c.Rate.RPS <= 0 {
		errs = multierror.Append(errs, errors.New("RATE_RPS must be > 0"))
	}
	if c.Rate.Burst < 0 {
		errs = multierror.Append(errs, errors.New("RATE_BURST must be > 0 (or 0 for auto)"))
	}
	if c.Concurrency.Max < 0 {
		errs = multierror.Append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		errs = multierror.Append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	if c.WriteTimeout > 0 && c.SignerTimeout > 0 && c.WriteTimeout <= c.SignerTimeout {
		errs = multierror.Append(errs, fmt.Errorf("WRITE_TIMEOUT (%s) must be greater than SIGNER_TIMEOUT (%s)", c.WriteTimeout, c.SignerTimeout))
	}
	return errs.ErrorOrNil()
}

// burst resolve RATE_BURST=0.
// IMPORTANTE: com RPS muito baixo (ex: 0.02), um burst de 20 deixa passar as primeiras
// ~20 requisições e parece que o limiter não funciona.
func (c *ServeCmd) burst() int {
	if c.Rate.Burst > 0 {
		return c.Rate.Burst
	}
	if c.Rate.RPS > 0 && c.Rate.RPS < 1 {
		return 1
	}
	return 20
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(os.Stderr, globals.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.WithContext(ctx)

	c.checkSigner(log)

	memory := infra.NewMemoryStatsStore()
	stores := []domain.StatsStore{memory}

	var metricsHandler http.Handler
	if c.MetricsEnabled {
		metrics := infra.NewMetrics()
		stores = append(stores, metrics)
		metricsHandler = promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
	}

	var rdb *redis.Client
	if c.Stats.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Stats.RedisAddr,
			Password: c.Stats.RedisPassword,
			DB:       c.Stats.RedisDB,

			ContextTimeoutEnabled: true,
		})
		if err := pingRedis(ctx, rdb, c.Stats.PingTimeout); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis stats ping: %w", err)
		}
		stores = append(stores, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(c.Stats.Prefix),
			infra.WithStatsTTL(c.Stats.TTL),
			infra.WithStatsBucket(c.Stats.Bucket),
			infra.WithStatsTrackClients(c.Stats.TrackKeys),
			infra.WithStatsWriteTimeout(c.Stats.WriteTimeout),
		))
	}
	stats := infra.MultiStats(stores...)

	limiter := admissioninfra.NewStore(c.Rate.RPS, c.burst())
	limiter.StartJanitor(ctx)

	srv := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           c.handler(log, stats, limiter, metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    8 * 1024,
	}

	log.Info().Str("version", globals.Version).Str("listen", c.ListenAddr).Msg("csr gateway starting")
	log.Info().
		Str("signer", c.SignerPath).
		Str("interpreter", c.SignerInterpreter).
		Dur("timeout", c.SignerTimeout).
		Int64("max_upload_bytes", c.MaxUploadBytes).
		Msg("signer")
	log.Info().
		Bool("enabled", c.Rate.Enabled).
		Float64("rps", c.Rate.RPS).
		Int("burst", c.burst()).
		Str("key_header", c.Rate.KeyHeader).
		Bool("trust_xff", c.Rate.TrustXFF).
		Int("concurrency_max", c.Concurrency.Max).
		Dur("concurrency_timeout", c.Concurrency.Timeout).
		Msg("admission")
	log.Info().
		Bool("redis", c.Stats.Enabled).
		Str("redis_addr", c.Stats.RedisAddr).
		Str("bucket", c.Stats.Bucket).
		Bool("metrics", c.MetricsEnabled).
		Msg("stats")

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var result *multierror.Error
	select {
	case err := <-serveErr:
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("serve: %w", err))
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("redis close: %w", err))
		}
	}

	logTotals(log, memory)
	return result.ErrorOrNil()
}

// handler monta a cadeia: log de requisição -> rotas -> (POST /sign) rate limit ->
// concorrência -> intake.
func (c *ServeCmd) handler(log zerolog.Logger, stats domain.StatsStore, limiter *admissioninfra.Store, metrics http.Handler) http.Handler {
	keyFn := admission.DefaultKeyFunc(c.Rate.KeyHeader, c.Rate.TrustXFF)
	onReject := rejectRecorder(stats)

	svc := application.Service{
		Artifacts: infra.NewTempStore(infra.WithArtifactDir(c.ArtifactDir)),
		Signer: &infra.ExecSigner{
			Path:        c.SignerPath,
			Interpreter: c.SignerInterpreter,
			Timeout:     c.SignerTimeout,
			WaitDelay:   c.SignerWaitDelay,
		},
		Stats: stats,
	}
	sign := signing.NewHandler(signing.Options{
		Service:        svc,
		MaxUploadBytes: c.MaxUploadBytes,
		Stats:          stats,
		ClientKey:      signing.KeyFunc(keyFn),
	})

	admit := func(next http.Handler) http.Handler {
		next = admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
			Max:            c.Concurrency.Max,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: c.Concurrency.Timeout,
			KeyFn:          keyFn,
			OnReject:       onReject,
		})(next)
		if c.Rate.Enabled {
			next = admission.Middleware(admission.Options{
				Store:               limiter,
				KeyFn:               keyFn,
				RejectStatus:        http.StatusTooManyRequests,
				RetryAfter:          c.Rate.RetryAfter,
				AddRateLimitHeaders: c.Rate.AddHeaders,
				OnReject:            onReject,
			})(next)
		}
		return next
	}

	mux := signing.Routes(sign, signing.RouteOptions{SignMiddleware: admit, Metrics: metrics})
	return logger.Requests(log)(mux)
}

// rejectRecorder contabiliza recusas da admissão junto com os demais desfechos.
func rejectRecorder(stats domain.StatsStore) admission.RejectFunc {
	return func(r *http.Request, key string, reason admissiondomain.Reason) {
		outcome := domain.OutcomeBusy
		if reason == admissiondomain.ReasonRateLimited {
			outcome = domain.OutcomeRateLimited
		}
		ev := domain.StatsEvent{Client: key, Outcome: outcome, At: time.Now()}
		if err := stats.Record(r.Context(), ev); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to record signing stats")
		}
	}
}

// checkSigner só avisa: executável ausente vira 500 por requisição, não impede o start.
func (c *ServeCmd) checkSigner(log zerolog.Logger) {
	name := c.SignerPath
	if c.SignerInterpreter != "" {
		name = c.SignerInterpreter
	}
	if _, err := exec.LookPath(name); err != nil {
		log.Warn().Err(err).Str("signer", name).Msg("signer not found, requests will fail until it is installed")
	}
}

func pingRedis(ctx context.Context, rdb redis.Cmdable, maxElapsed time.Duration) error {
	_, err := backoff.Retry(ctx, func() (string, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	return err
}

func logTotals(log zerolog.Logger, memory *infra.MemoryStatsStore) {
	ev := log.Info()
	for outcome, n := range memory.Totals() {
		ev = ev.Int64(string(outcome), n)
	}
	ev.Msg("signing totals")
}
