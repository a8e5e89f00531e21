// Package application contém os casos de uso de admissão: decisão do rate limit e
// aquisição de vaga com timeout. Depende apenas de domain.
package application
