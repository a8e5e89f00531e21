package application

import (
	"time"

	"csr-gateway/middleware/admission/domain"
)

const defaultRetryAfter = 1 * time.Second

// RateService concentra a regra do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type RateService struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s RateService) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}

	retry := s.RetryAfter
	if retry <= 0 {
		retry = defaultRetryAfter
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}
}
