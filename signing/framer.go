package signing

import (
	"html"
	"net/http"
	"strconv"
	"strings"
)

const (
	contentTypeBinary = "application/octet-stream"
	contentTypeHTML   = "text/html; charset=utf-8"
)

// Header é um par nome/valor. Response usa slice para manter a ordem de inserção.
type Header struct {
	Name  string
	Value string
}

// Response é a resposta completa de uma requisição, pronta para ir pro socket.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
}

// Get devolve o primeiro valor do header (case-insensitive).
func (r Response) Get(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Write aplica headers na ordem, o status e o corpo.
func (r Response) Write(w http.ResponseWriter) error {
	for _, h := range r.Headers {
		w.Header().Set(h.Name, h.Value)
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// DeriveFilename tira a extensão do nome enviado e troca a primeira ocorrência de
// "_csr_" por "_crt_". Ex.: "foo_csr_bar.req" => "foo_crt_bar", "foo.req" => "foo".
func DeriveFilename(original string) string {
	return strings.Replace(stripExt(original), "_csr_", "_crt_", 1)
}

// stripExt remove a última extensão. Pontos no início do nome (".bashrc") não contam.
func stripExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.TrimLeft(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}

// quoteFilename escapa o que quebraria o filename="..." do Content-Disposition.
// O nome vem do cliente.
func quoteFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('"')
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// controle (CR/LF etc.) some
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FrameSuccess devolve o certificado como anexo, bytes repassados sem alteração.
func FrameSuccess(originalFilename string, certificate []byte) Response {
	return Response{
		Status: http.StatusOK,
		Headers: []Header{
			{Name: "Content-Type", Value: contentTypeBinary},
			{Name: "Content-Disposition", Value: "attachment; filename=" + quoteFilename(DeriveFilename(originalFilename)+".pem")},
			{Name: "Content-Length", Value: formatInt(len(certificate))},
		},
		Body: certificate,
	}
}

// FrameFailure embute o stderr do signer numa página HTML. O texto é escapado.
func FrameFailure(stderrText string) Response {
	body := []byte("<html><body>Error:<pre>" + html.EscapeString(stderrText) + "</pre></body></html>")
	return htmlResponse(http.StatusInternalServerError, body)
}

// FrameBadRequest é a resposta para upload sem arquivo: 400 sem corpo.
func FrameBadRequest() Response {
	return Response{
		Status:  http.StatusBadRequest,
		Headers: []Header{{Name: "Content-Length", Value: "0"}},
	}
}

// FrameStatus gera uma página HTML genérica para os demais erros (413, 500, 504...).
func FrameStatus(status int, message string) Response {
	body := []byte("<html><body>Error:<pre>" + html.EscapeString(message) + "</pre></body></html>")
	return htmlResponse(status, body)
}

func htmlResponse(status int, body []byte) Response {
	return Response{
		Status: status,
		Headers: []Header{
			{Name: "Content-Type", Value: contentTypeHTML},
			{Name: "Content-Length", Value: formatInt(len(body))},
		},
		Body: body,
	}
}

func formatInt(v int) string { return strconv.Itoa(v) }
