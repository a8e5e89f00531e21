// Package admission fornece middlewares HTTP (net/http) que decidem se uma
// requisição de assinatura pode entrar: rate limit por cliente e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (sem net/http)
//   - application: decisão allow/deny e acquire com timeout
//   - infra: token bucket por chave (x/time/rate) e semáforo de canal
//   - admission (este pacote): middlewares, extração de chave, status/headers
//
// Fluxo:
//
//  1. Extrai a chave do cliente (header/XFF/RemoteAddr)
//  2. Rate limit: bloqueado => 429 + Retry-After
//  3. Concorrência: sem vaga dentro do timeout => 503
//  4. Caso contrário chama o próximo handler (intake do CSR)
//
// Cada recusa dispara OnReject, usado pela gateway para contabilizar rate_limited/busy.
package admission
