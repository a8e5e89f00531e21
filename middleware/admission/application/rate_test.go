package application

import (
	"testing"
	"time"

	"csr-gateway/middleware/admission/domain"

	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow() bool { return f.allow }

type fakeStore struct {
	lim domain.Limiter
}

func (s fakeStore) Get(domain.Key) domain.Limiter { return s.lim }

func TestRateService_Decide(t *testing.T) {
	tests := []struct {
		name     string
		svc      RateService
		expected domain.Decision
	}{
		{
			name:     "no store allows",
			svc:      RateService{},
			expected: domain.Decision{Allowed: true},
		},
		{
			name:     "nil limiter allows",
			svc:      RateService{Store: fakeStore{}},
			expected: domain.Decision{Allowed: true},
		},
		{
			name:     "limiter allows",
			svc:      RateService{Store: fakeStore{lim: fakeLimiter{allow: true}}, RetryAfter: 5 * time.Second},
			expected: domain.Decision{Allowed: true},
		},
		{
			name:     "blocked with default retry",
			svc:      RateService{Store: fakeStore{lim: fakeLimiter{allow: false}}},
			expected: domain.Decision{Allowed: false, RetryAfter: time.Second},
		},
		{
			name:     "blocked with configured retry",
			svc:      RateService{Store: fakeStore{lim: fakeLimiter{allow: false}}, RetryAfter: 2500 * time.Millisecond},
			expected: domain.Decision{Allowed: false, RetryAfter: 2500 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.svc.Decide("10.0.0.1"))
		})
	}
}
