package infra

import (
	"context"
	"sync"

	"csr-gateway/signing/domain"
)

// MemoryStatsStore guarda contadores de desfecho em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     map[domain.Outcome]int64
	byPurpose map[string]map[domain.Outcome]int64
	byClient  map[string]map[domain.Outcome]int64

	trackClients bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackClients(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackClients = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:     make(map[domain.Outcome]int64),
		byPurpose: make(map[string]map[domain.Outcome]int64),
		byClient:  make(map[string]map[domain.Outcome]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	if ev.Purpose != "" {
		incr(s.byPurpose, ev.Purpose, ev.Outcome)
	}
	if s.trackClients && ev.Client != "" {
		incr(s.byClient, ev.Client, ev.Outcome)
	}
	return nil
}

func incr(m map[string]map[domain.Outcome]int64, key string, outcome domain.Outcome) {
	c, ok := m[key]
	if !ok {
		c = make(map[domain.Outcome]int64)
		m[key] = c
	}
	c[outcome]++
}

// Count devolve o total de um desfecho.
func (s *MemoryStatsStore) Count(outcome domain.Outcome) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total[outcome]
}

func (s *MemoryStatsStore) ByPurpose(purpose string) map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.byPurpose[purpose])
}

func (s *MemoryStatsStore) ByClient(client string) map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.byClient[client])
}

func copyCounters(in map[domain.Outcome]int64) map[domain.Outcome]int64 {
	out := make(map[domain.Outcome]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Totals devolve uma cópia dos contadores globais.
func (s *MemoryStatsStore) Totals() map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.total)
}
