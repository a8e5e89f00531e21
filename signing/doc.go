// Package signing é o adapter HTTP (net/http) da gateway de CSR.
//
// Visão geral (camadas):
//
//   - domain: tipos, classificação sign/auth, erros e contratos (sem net/http)
//   - application: caso de uso Sign (artefato -> classificação -> signer -> release)
//   - infra: arquivo temporário, processo do signer, estatísticas (memória/Redis/Prometheus)
//   - signing (este pacote): parse do multipart, framing das respostas e rotas
//
// Fluxo do POST /sign:
//
//  1. Lê o multipart (campo "certreq" obrigatório, "type" opcional, padrão auto)
//  2. Sem arquivo => 400 sem corpo; corpo grande demais => 413
//  3. Chama application.Service.Sign
//  4. exit 0 => 200 application/octet-stream com Content-Disposition <nome>.pem
//  5. exit != 0 => 500 text/html com o stderr do signer (escapado)
package signing
