package infra

import (
	"context"
	"testing"
	"time"

	"csr-gateway/middleware/admission/domain"

	"github.com/stretchr/testify/require"
)

func TestStore_SameKeySameLimiter(t *testing.T) {
	s := NewStore(10, 1)

	require.Same(t, s.limiter("k"), s.limiter("k"))
	require.NotSame(t, s.limiter("k"), s.limiter("other"))
	require.Equal(t, 2, s.Len())
}

func TestStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewStore(0.02, 1)

	lim := s.Get(domain.Key("10.0.0.1"))
	require.True(t, lim.Allow())
	require.False(t, lim.Allow())

	// outro cliente tem o próprio bucket
	require.True(t, s.Get(domain.Key("10.0.0.2")).Allow())
}

func TestStore_CleanupRemovesIdleEntries(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewStore(10, 1, WithIdleTTL(time.Minute), WithCleanupEvery(0), withClock(func() time.Time { return now }))

	before := s.limiter("idle")
	now = now.Add(30 * time.Second)
	s.limiter("fresh")
	now = now.Add(45 * time.Second)

	s.Cleanup()

	require.Equal(t, 1, s.Len())
	require.NotSame(t, before, s.limiter("idle"))
}

func TestStore_RateInfo(t *testing.T) {
	s := NewStore(0.5, 3)
	require.Equal(t, 0.5, s.RPS())
	require.Equal(t, 3, s.Burst())
}

func TestChanPool(t *testing.T) {
	p := NewChanPool(1)
	require.Equal(t, 1, p.Cap())

	release, ok := p.Acquire(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, p.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok = p.Acquire(ctx)
	require.False(t, ok)

	release()
	release()
	require.Equal(t, 0, p.InUse())

	release2, ok := p.Acquire(context.Background())
	require.True(t, ok)
	release2()
}
