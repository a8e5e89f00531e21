package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBadRequest indica que nenhum arquivo veio no campo certreq.
	ErrBadRequest = errors.New("no certificate request uploaded")
	// ErrUploadTooLarge indica que o corpo passou do limite configurado.
	ErrUploadTooLarge = errors.New("upload too large")
	// ErrArtifactIO indica falha ao gravar/ler o artefato temporário.
	ErrArtifactIO = errors.New("artifact io failed")
	// ErrSpawn indica que o executável do signer não pôde ser iniciado.
	ErrSpawn = errors.New("signer spawn failed")
	// ErrSignerTimeout indica que o signer passou do tempo e foi morto.
	ErrSignerTimeout = errors.New("signer timed out")
)

// SpawnError carrega a causa original (executável ausente, sem permissão...).
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSpawn, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// SignerFailure é um exit code diferente de zero. Stderr é o diagnóstico do signer.
type SignerFailure struct {
	Purpose  Purpose
	ExitCode int
	Stderr   string
}

func (e *SignerFailure) Error() string {
	return fmt.Sprintf("signer exited with code %d (%s)", e.ExitCode, e.Purpose)
}

// Outcome é o rótulo usado em estatísticas e métricas.
type Outcome string

const (
	OutcomeIssued        Outcome = "issued"
	OutcomeBadRequest    Outcome = "bad_request"
	OutcomeTooLarge      Outcome = "too_large"
	OutcomeSignerFailure Outcome = "signer_failure"
	OutcomeSpawnError    Outcome = "spawn_error"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeIOError       Outcome = "io_error"
	OutcomeCanceled      Outcome = "canceled"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeBusy          Outcome = "busy"
	OutcomeInternal      Outcome = "internal"
)

// OutcomeOf traduz um erro do fluxo de assinatura para o rótulo de estatística.
// nil => OutcomeIssued.
func OutcomeOf(err error) Outcome {
	var failure *SignerFailure
	switch {
	case err == nil:
		return OutcomeIssued
	case errors.As(err, &failure):
		return OutcomeSignerFailure
	case errors.Is(err, ErrBadRequest):
		return OutcomeBadRequest
	case errors.Is(err, ErrUploadTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrSpawn):
		return OutcomeSpawnError
	case errors.Is(err, ErrSignerTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrArtifactIO):
		return OutcomeIOError
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeInternal
	}
}
