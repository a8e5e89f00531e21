package domain

import (
	"strings"
	"time"
)

// DeclaredType é a dica de tipo enviada pelo formulário (campo "type").
type DeclaredType string

const (
	DeclaredSign DeclaredType = "sign"
	DeclaredAuth DeclaredType = "auth"
	DeclaredAuto DeclaredType = "auto"
)

// ParseDeclaredType normaliza o valor do formulário.
// Qualquer valor vazio ou desconhecido vira DeclaredAuto.
func ParseDeclaredType(v string) DeclaredType {
	switch t := DeclaredType(strings.TrimSpace(v)); t {
	case DeclaredSign, DeclaredAuth:
		return t
	default:
		return DeclaredAuto
	}
}

// Purpose seleciona o perfil de certificado que a autoridade externa deve aplicar.
type Purpose int

const (
	PurposeAuth Purpose = iota
	PurposeSign
)

func (p Purpose) String() string {
	if p == PurposeSign {
		return "sign"
	}
	return "auth"
}

// SigningRequest é o upload já extraído do multipart. Não deve ser alterado depois de criado.
type SigningRequest struct {
	Raw      []byte
	Filename string
	Declared DeclaredType
}

// SignerResult é o que o processo externo devolveu.
// Stdout só tem significado quando ExitCode == 0.
type SignerResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Issued é o resultado de uma assinatura bem sucedida.
type Issued struct {
	Purpose     Purpose
	Certificate []byte
	Elapsed     time.Duration
}
