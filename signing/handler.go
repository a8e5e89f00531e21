package signing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"csr-gateway/signing/domain"

	"github.com/rs/zerolog"
)

const (
	// FieldCertReq é o campo de arquivo do formulário.
	FieldCertReq = "certreq"
	// FieldType é o campo opcional sign|auth|auto.
	FieldType = "type"

	// DefaultMaxUploadBytes é o limite padrão de upload (10 kB).
	DefaultMaxUploadBytes = 10000

	msgSignerUnavailable = "signing service unavailable"
	msgSignerTimeout     = "signing timed out"
	msgStorageFailed     = "could not store the certificate request"
	msgInternal          = "internal error"
	msgTooLarge          = "certificate request too large"
)

// SigningService é o caso de uso chamado pelo handler (application.Service).
type SigningService interface {
	Sign(ctx context.Context, client string, req domain.SigningRequest) (domain.Issued, error)
}

// KeyFunc identifica o cliente para estatísticas.
type KeyFunc func(r *http.Request) string

type Options struct {
	Service SigningService
	// MaxUploadBytes limita o corpo inteiro da requisição. <= 0 usa DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// Stats registra os desfechos que não chegam ao Service (bad request, 413). Opcional.
	Stats domain.StatsStore
	// ClientKey padrão: host do RemoteAddr.
	ClientKey KeyFunc
}

// Handler recebe o POST multipart, despacha para o Service e escreve a resposta.
type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ClientKey == nil {
		opts.ClientKey = remoteHost
	}
	return &Handler{opts: opts}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ServeHTTP atende POST /sign.
//
// Expect: 100-continue é respondido pelo net/http na primeira leitura do corpo, ou seja,
// antes de qualquer byte do upload ser consumido aqui.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	client := h.opts.ClientKey(r)

	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("signing handler panicked")
			h.write(ctx, w, FrameStatus(http.StatusInternalServerError, msgInternal))
		}
	}()

	req, err := h.parse(w, r)
	if err != nil {
		h.record(ctx, client, err)
		log.Warn().Err(err).Str("client", client).Msg("rejected upload")
		h.write(ctx, w, frameError(err))
		return
	}

	issued, err := h.opts.Service.Sign(ctx, client, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Err(err).Msg("client went away before signing finished")
			return
		}
		h.write(ctx, w, frameError(err))
		return
	}

	log.Info().
		Str("purpose", issued.Purpose.String()).
		Int("bytes", len(issued.Certificate)).
		Dur("elapsed", issued.Elapsed).
		Msg("certificate issued")
	h.write(ctx, w, FrameSuccess(req.Filename, issued.Certificate))
}

// parse extrai certreq/type do multipart.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (domain.SigningRequest, error) {
	if r.ContentLength > h.opts.MaxUploadBytes {
		return domain.SigningRequest{}, fmt.Errorf("%w: %d bytes declared", domain.ErrUploadTooLarge, r.ContentLength)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SigningRequest{}, fmt.Errorf("%w: limit %d bytes", domain.ErrUploadTooLarge, tooLarge.Limit)
		}
		return domain.SigningRequest{}, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(FieldCertReq)
	if err != nil {
		return domain.SigningRequest{}, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	defer func() { _ = file.Close() }()
	if header.Filename == "" {
		return domain.SigningRequest{}, domain.ErrBadRequest
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		return domain.SigningRequest{}, fmt.Errorf("%w: read upload: %v", domain.ErrArtifactIO, err)
	}

	return domain.SigningRequest{
		Raw:      raw,
		Filename: header.Filename,
		Declared: domain.ParseDeclaredType(r.PostFormValue(FieldType)),
	}, nil
}

// frameError traduz erro do domínio em resposta HTTP.
func frameError(err error) Response {
	var failure *domain.SignerFailure
	switch {
	case errors.As(err, &failure):
		return FrameFailure(failure.Stderr)
	case errors.Is(err, domain.ErrBadRequest):
		return FrameBadRequest()
	case errors.Is(err, domain.ErrUploadTooLarge):
		return FrameStatus(http.StatusRequestEntityTooLarge, msgTooLarge)
	case errors.Is(err, domain.ErrSpawn):
		return FrameStatus(http.StatusInternalServerError, msgSignerUnavailable)
	case errors.Is(err, domain.ErrSignerTimeout):
		return FrameStatus(http.StatusGatewayTimeout, msgSignerTimeout)
	case errors.Is(err, domain.ErrArtifactIO):
		return FrameStatus(http.StatusInternalServerError, msgStorageFailed)
	default:
		return FrameStatus(http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handler) write(ctx context.Context, w http.ResponseWriter, resp Response) {
	if err := resp.Write(w); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("status", resp.Status).Msg("failed to write response")
	}
}

func (h *Handler) record(ctx context.Context, client string, err error) {
	if h.opts.Stats == nil {
		return
	}
	ev := domain.StatsEvent{Client: client, Outcome: domain.OutcomeOf(err), At: time.Now()}
	if rerr := h.opts.Stats.Record(ctx, ev); rerr != nil {
		zerolog.Ctx(ctx).Warn().Err(rerr).Msg("failed to record signing stats")
	}
}
