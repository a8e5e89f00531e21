// Package application contém o caso de uso de assinatura de um CSR.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Sign(ctx, req) grava o artefato, classifica, chama o signer e garante
// a remoção do artefato em qualquer caminho de saída.
package application
