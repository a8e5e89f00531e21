package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"csr-gateway/signing/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava os desfechos em hashes do Redis:
//
//	<prefix>:total                 outcome -> n (cumulativo, sem TTL)
//	<prefix>:minute:<YYYYMMDDhhmm> outcome -> n (com TTL)
//	<prefix>:purpose               "<purpose>:<outcome>" -> n
//	<prefix>:client:<client>       outcome -> n (só com trackClients, com TTL)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por cliente.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	// writeTimeout limita quanto um Redis lento segura a resposta.
	writeTimeout time.Duration

	trackClients bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithStatsWriteTimeout define o prazo de cada Record; <= 0 desliga o limite.
func WithStatsWriteTimeout(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.writeTimeout = d }
}

func WithStatsTrackClients(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackClients = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "csrgw:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",

		writeTimeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	// o desfecho de uma requisição cancelada também é contado
	ctx = context.WithoutCancel(ctx)
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if p := strings.TrimSpace(ev.Purpose); p != "" {
		pipe.HIncrBy(ctx, s.prefix+":purpose", p+":"+field, 1)
	}

	if s.trackClients {
		if c := strings.TrimSpace(ev.Client); c != "" {
			clientKey := s.prefix + ":client:" + c
			pipe.HIncrBy(ctx, clientKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, clientKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
