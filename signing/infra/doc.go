// Package infra contém as implementações concretas dos contratos de signing/domain.
//
// Exemplos:
//   - TempStore: artefato efêmero em disco (os.CreateTemp) com release idempotente
//   - ExecSigner: executa o signer externo via os/exec, com timeout
//   - MemoryStatsStore / RedisStatsStore / Metrics: estatísticas de desfecho
package infra
