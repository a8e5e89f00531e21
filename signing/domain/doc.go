// Package domain define os tipos e contratos da emissão de certificados a partir de um CSR.
//
// Este pacote não depende de net/http, de os/exec nem de implementações concretas.
// Aqui ficam a classificação de propósito (sign/auth), os erros do domínio e as
// interfaces que a camada infra implementa (artefato temporário, signer, estatísticas).
package domain
