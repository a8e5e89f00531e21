// Package infra contém as implementações concretas da admissão: token bucket por
// cliente (golang.org/x/time/rate) e semáforo de canal para concorrência.
package infra
