package domain

import (
	"context"
	"time"
)

// Key identifica o cliente (IP, header, primeiro IP do XFF).
type Key string

// Limiter decide se uma ação é permitida agora.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	RetryAfter time.Duration
}

// SlotPool representa um recurso com capacidade finita (assinaturas em andamento).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. O release devolvido
// deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// Reason diz por que uma requisição foi recusada antes de chegar ao handler.
type Reason string

const (
	ReasonRateLimited Reason = "rate_limited"
	ReasonBusy        Reason = "busy"
)
