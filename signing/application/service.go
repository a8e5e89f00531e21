package application

import (
	"context"
	"fmt"
	"time"

	"csr-gateway/signing/domain"

	"github.com/rs/zerolog"
)

// Service concentra a regra de aplicação da assinatura.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas devolve o certificado ou um erro
// do domínio.
type Service struct {
	Artifacts domain.ArtifactStore
	Signer    domain.Signer
	// Stats é opcional.
	Stats domain.StatsStore
	// Now é usado nos testes; nil => time.Now.
	Now func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sign executa: grava artefato -> classifica -> invoca signer -> remove artefato.
//
// client só é usado nas estatísticas.
func (s Service) Sign(ctx context.Context, client string, req domain.SigningRequest) (issued domain.Issued, err error) {
	log := zerolog.Ctx(ctx)
	started := s.now()
	purpose := domain.Classify(req.Declared, req.Filename)

	defer func() {
		outcome := domain.OutcomeOf(err)
		p := recover()
		if p != nil {
			outcome = domain.OutcomeInternal
		}
		s.record(ctx, domain.StatsEvent{
			Client:  client,
			Purpose: purpose.String(),
			Outcome: outcome,
			Elapsed: s.now().Sub(started),
			At:      started,
		})
		if p != nil {
			panic(p)
		}
	}()

	artifact, err := s.Artifacts.Acquire(req.Raw)
	if err != nil {
		return domain.Issued{}, fmt.Errorf("acquire artifact: %w", err)
	}
	defer func() {
		if rerr := artifact.Release(); rerr != nil {
			log.Warn().Err(rerr).Str("artifact", artifact.Path()).Msg("failed to release artifact")
		}
	}()

	log.Info().
		Str("purpose", purpose.String()).
		Str("declared", string(req.Declared)).
		Str("filename", req.Filename).
		Int("size", len(req.Raw)).
		Msg("dispatching signing request")

	res, err := s.Signer.Invoke(ctx, purpose, artifact.Path())
	if err != nil {
		return domain.Issued{}, fmt.Errorf("invoke signer: %w", err)
	}

	if res.ExitCode != 0 {
		stderr := string(res.Stderr)
		log.Error().
			Int("exit_code", res.ExitCode).
			Str("purpose", purpose.String()).
			Str("stderr", stderr).
			Msg("signer failed")
		return domain.Issued{}, &domain.SignerFailure{Purpose: purpose, ExitCode: res.ExitCode, Stderr: stderr}
	}

	return domain.Issued{
		Purpose:     purpose,
		Certificate: res.Stdout,
		Elapsed:     s.now().Sub(started),
	}, nil
}

func (s Service) record(ctx context.Context, ev domain.StatsEvent) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Record(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record signing stats")
	}
}
