package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"csr-gateway/signing/domain"

	"github.com/rs/zerolog"
)

const defaultWaitDelay = 2 * time.Second

// ExecSigner roda o executável do signer como processo filho:
//
//	[Interpreter] Path <sign|auth> <artifactPath>
//
// Os argumentos vão posicionais, sem shell no meio.
type ExecSigner struct {
	Path        string
	Interpreter string
	// Timeout <= 0 espera indefinidamente (só o ctx do chamador interrompe).
	Timeout time.Duration
	// WaitDelay limita a espera por netos que seguram stdout/stderr abertos depois do kill.
	WaitDelay time.Duration
	// Env é somado ao ambiente herdado.
	Env []string
}

var _ domain.Signer = (*ExecSigner)(nil)

func (s *ExecSigner) command(purpose domain.Purpose, artifactPath string) (string, []string) {
	if s.Interpreter != "" {
		return s.Interpreter, []string{s.Path, purpose.String(), artifactPath}
	}
	return s.Path, []string{purpose.String(), artifactPath}
}

// Invoke bloqueia até o filho terminar e devolve stdout/stderr completos.
func (s *ExecSigner) Invoke(ctx context.Context, purpose domain.Purpose, artifactPath string) (domain.SignerResult, error) {
	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	name, args := s.command(purpose, artifactPath)

	// #nosec G204 - binário fixo da configuração, argumentos posicionais
	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = s.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		// Start com contexto já encerrado devolve ctx.Err(): não é falha de spawn
		if cerr := s.contextErr(ctx, runCtx); cerr != nil {
			return domain.SignerResult{}, cerr
		}
		return domain.SignerResult{}, &domain.SpawnError{Path: name, Err: err}
	}

	zerolog.Ctx(ctx).Debug().
		Int("pid", cmd.Process.Pid).
		Str("purpose", purpose.String()).
		Str("artifact", artifactPath).
		Msg("signer started")

	err := cmd.Wait()
	res := domain.SignerResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	zerolog.Ctx(ctx).Debug().
		Dur("duration", time.Since(started)).
		Int("exit_code", cmd.ProcessState.ExitCode()).
		Msg("signer finished")

	if err == nil {
		return res, nil
	}

	if cerr := s.contextErr(ctx, runCtx); cerr != nil {
		return res, cerr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// o filho saiu com sucesso mas algum neto segurou os pipes
		res.ExitCode = cmd.ProcessState.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("wait signer: %w", err)
}

// contextErr separa cancelamento do cliente de estouro do SIGNER_TIMEOUT.
func (s *ExecSigner) contextErr(ctx, runCtx context.Context) error {
	if runCtx.Err() == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("signer aborted: %w", ctx.Err())
	}
	return fmt.Errorf("%w after %s", domain.ErrSignerTimeout, s.Timeout)
}
