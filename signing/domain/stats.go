package domain

import (
	"context"
	"time"
)

// StatsEvent descreve o desfecho de uma requisição de assinatura.
//
// Purpose vem vazio quando a requisição nem chegou a ser classificada (bad request,
// rate limit...). Cuidado com cardinalidade ao persistir Client.
type StatsEvent struct {
	Client  string
	Purpose string
	Outcome Outcome
	Elapsed time.Duration
	At      time.Time
}

// StatsStore persiste estatísticas de assinatura.
//
// Implementações podem usar Redis, memória, Prometheus etc. Quem chama trata erro
// como best-effort (não derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
